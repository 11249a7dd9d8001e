package characters

import (
	"testing"

	"github.com/starford/saga/internal/metadata"
)

func extract(t *testing.T, body string) *FileMentions {
	t.Helper()
	v, err := Extract(body, metadata.Context{FilePath: "test.md"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return v.(*FileMentions)
}

func TestExtract_Introduction(t *testing.T) {
	fm := extract(t, "Katherine walked into the room.\n")
	if len(fm.Introductions) != 1 {
		t.Fatalf("introductions = %+v, want 1", fm.Introductions)
	}
	in := fm.Introductions[0]
	if in.Name != "Katherine" || in.Line != 1 || in.Context != ContextCurrent {
		t.Errorf("introduction = %+v", in)
	}
}

func TestExtract_IntroductionVerbs(t *testing.T) {
	for _, verb := range []string{"walked", "entered", "appeared", "stood"} {
		fm := extract(t, "Marcus "+verb+" by the door.\n")
		if len(fm.Introductions) != 1 {
			t.Errorf("verb %q: introductions = %+v", verb, fm.Introductions)
		}
	}
}

func TestExtract_RetrospectiveMention(t *testing.T) {
	fm := extract(t, `"Remember when Marcus saved us from the flood?"`+"\n")
	if len(fm.Introductions) != 0 {
		t.Errorf("introductions = %+v, want none", fm.Introductions)
	}
	found := false
	for _, m := range fm.Mentions {
		if m.Name == "Marcus" {
			found = true
			if m.Context != ContextRetrospective {
				t.Errorf("context = %q, want retrospective", m.Context)
			}
		}
		if m.Name == "Remember" {
			t.Error("phrase word leaked as a mention")
		}
	}
	if !found {
		t.Error("Marcus not extracted")
	}
}

func TestExtract_ThinkingAboutAndRecalled(t *testing.T) {
	fm := extract(t, "She sat thinking about Elena all evening.\nHe recalled Tom fondly.\n")
	byName := map[string]string{}
	for _, m := range fm.Mentions {
		byName[m.Name] = m.Context
	}
	if byName["Elena"] != ContextRetrospective {
		t.Errorf("Elena context = %q", byName["Elena"])
	}
	if byName["Tom"] != ContextRetrospective {
		t.Errorf("Tom context = %q", byName["Tom"])
	}
}

func TestExtract_GeneralMentionAndStoplist(t *testing.T) {
	fm := extract(t, "On Monday Elena met the baker in October.\n")
	var names []string
	for _, m := range fm.Mentions {
		names = append(names, m.Name)
	}
	if len(names) != 1 || names[0] != "Elena" {
		t.Errorf("mentions = %v, want [Elena]", names)
	}
}

func TestExtract_TwoWordNames(t *testing.T) {
	fm := extract(t, "Mary Shelley entered the hall.\n")
	if len(fm.Introductions) != 1 || fm.Introductions[0].Name != "Mary Shelley" {
		t.Errorf("introductions = %+v", fm.Introductions)
	}
}

func TestExtract_DialogueContext(t *testing.T) {
	fm := extract(t, `"Elena is late again," said the clerk.`+"\n")
	for _, m := range fm.Mentions {
		if m.Name == "Elena" && m.Context != ContextDialogue {
			t.Errorf("Elena context = %q, want dialogue", m.Context)
		}
	}
}

func TestExtract_IntroductionNotDoubleCounted(t *testing.T) {
	fm := extract(t, "Elena entered the garden where Elena rested.\n")
	count := 0
	for _, m := range fm.Mentions {
		if m.Name == "Elena" {
			count++
		}
	}
	// One from the introduction, one from the later general mention.
	if count != 2 {
		t.Errorf("Elena mentions = %d, want 2", count)
	}
}
