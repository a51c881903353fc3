package session

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	st := New(Defaults{})
	if st.DocStyle() != StyleDetailed {
		t.Fatalf("DocStyle = %q, want detailed", st.DocStyle())
	}
	if got := st.Topics(); !reflect.DeepEqual(got, []string{"Quick Start", "Installation"}) {
		t.Fatalf("Topics = %v", got)
	}
	if st.Stage() != StageIdle {
		t.Fatalf("Stage = %q", st.Stage())
	}
	if st.PublishStatus() != Unpublished {
		t.Fatalf("PublishStatus = %q", st.PublishStatus())
	}
	if st.SessionID() != "" || st.GeneratedDocument() != "" {
		t.Fatal("fresh session should have no id and no document")
	}
}

func TestTopics_AddRemoveUniqueness(t *testing.T) {
	st := New(Defaults{Topics: []string{}})

	st.AddTopic("Overview")
	st.AddTopic("License")
	st.AddTopic("Overview")
	if got := st.Topics(); !reflect.DeepEqual(got, []string{"Overview", "License"}) {
		t.Fatalf("after adds: %v", got)
	}

	st.RemoveTopic("Deployment")
	if got := st.Topics(); !reflect.DeepEqual(got, []string{"Overview", "License"}) {
		t.Fatalf("removing absent topic changed list: %v", got)
	}

	st.RemoveTopic("Overview")
	if got := st.Topics(); !reflect.DeepEqual(got, []string{"License"}) {
		t.Fatalf("after remove: %v", got)
	}
}

func TestTopics_SetDedupes(t *testing.T) {
	st := New(Defaults{})
	st.SetTopics([]string{"A", "B", "A", " ", "C", "B"})
	if got := st.Topics(); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Fatalf("Topics = %v", got)
	}
}

func TestTopics_Toggle(t *testing.T) {
	st := New(Defaults{Topics: []string{"Installation"}})
	st.ToggleTopic("Installation")
	st.ToggleTopic("License")
	if got := st.Topics(); !reflect.DeepEqual(got, []string{"License"}) {
		t.Fatalf("Topics = %v", got)
	}
}

func TestSubscribe_NotifiedSynchronously(t *testing.T) {
	st := New(Defaults{})
	var seen []Field
	var docAtNotify string
	unsub := st.Subscribe(func(c Change) {
		seen = append(seen, c.Field)
		docAtNotify = st.GeneratedDocument()
	})

	st.SetGeneratedDocument("# Hello")
	if docAtNotify != "# Hello" {
		t.Fatalf("subscriber saw %q before mutation was visible", docAtNotify)
	}
	st.AddTopic("Quick Start") // already present: no notification
	st.SetStage(StageEditing)

	want := []Field{FieldDocument, FieldStage}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}

	unsub()
	unsub()
	st.SetStage(StagePublished)
	if len(seen) != 2 {
		t.Fatalf("unsubscribed handler was called: %v", seen)
	}
}

func TestSubscribe_HandlerMayUnsubscribeOthers(t *testing.T) {
	st := New(Defaults{})
	calls := 0
	var unsubB func()
	st.Subscribe(func(Change) { unsubB() })
	unsubB = st.Subscribe(func(Change) { calls++ })

	st.SetSessionID("s1")
	if calls != 0 {
		t.Fatalf("handler removed during delivery still ran %d times", calls)
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	st := New(Defaults{})
	snap := st.Snapshot()
	snap.Topics[0] = "mutated"
	if st.Topics()[0] != "Quick Start" {
		t.Fatal("snapshot shares topic storage with the store")
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	st := New(Defaults{})
	st.SetRepo("https://github.com/acme/widgets", "acme", "widgets")
	st.SetSessionID("abc-123")
	st.SetDocStyle(StyleVibrant)
	st.SetGeneratedDocument("# Widgets")
	st.SetStage(StageEditing)
	if err := st.Save(dir); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(filepath.Join(dir, "session.json"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("session.json mode = %v", info.Mode().Perm())
	}

	loaded, err := Load(dir, Defaults{})
	if err != nil {
		t.Fatal(err)
	}
	snap := loaded.Snapshot()
	if snap.SessionID != "abc-123" || snap.Owner != "acme" || snap.Repo != "widgets" {
		t.Fatalf("loaded = %+v", snap)
	}
	if snap.DocStyle != StyleVibrant || snap.Stage != StageEditing || snap.GeneratedDocument != "# Widgets" {
		t.Fatalf("loaded = %+v", snap)
	}
}

func TestLoad_Missing(t *testing.T) {
	st, err := Load(t.TempDir(), Defaults{Style: StyleSimple})
	if err != nil {
		t.Fatal(err)
	}
	if st.DocStyle() != StyleSimple {
		t.Fatalf("DocStyle = %q", st.DocStyle())
	}
}

func TestReset(t *testing.T) {
	st := New(Defaults{})
	st.SetSessionID("old")
	st.SetGeneratedDocument("# Old")
	st.Reset(Defaults{Topics: []string{"License"}})
	snap := st.Snapshot()
	if snap.SessionID != "" || snap.GeneratedDocument != "" {
		t.Fatalf("reset kept state: %+v", snap)
	}
	if !reflect.DeepEqual(snap.Topics, []string{"License"}) {
		t.Fatalf("Topics = %v", snap.Topics)
	}
}

func TestParseStyle(t *testing.T) {
	for in, want := range map[string]DocStyle{"simple": StyleSimple, " Detailed ": StyleDetailed, "VIBRANT": StyleVibrant} {
		got, err := ParseStyle(in)
		if err != nil || got != want {
			t.Fatalf("ParseStyle(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStyle("fancy"); err == nil {
		t.Fatal("expected error for unknown style")
	}
	if DocStyle("Simple").Valid() {
		t.Fatal("Valid must be exact")
	}
}
