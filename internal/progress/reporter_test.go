package progress

import (
	"testing"

	"automc/client/internal/protocol"
)

type fakeSender struct{ sent []any }

func (f *fakeSender) Send(v any) bool {
	f.sent = append(f.sent, v)
	return true
}

func TestReporter_SendsProgress(t *testing.T) {
	s := &fakeSender{}
	r := NewReporter(s, nil)
	r.Report("a1", protocol.StatusOK, "")
	r.Report("a2", protocol.StatusFail, "no world")
	r.Report("a3", protocol.StatusSkipped, "later")

	want := []protocol.ProgressUpdate{
		protocol.NewProgress("a1", protocol.StatusOK, ""),
		protocol.NewProgress("a2", protocol.StatusFail, "no world"),
		protocol.NewProgress("a3", protocol.StatusSkipped, "later"),
	}
	if len(s.sent) != len(want) {
		t.Fatalf("expected %d updates, got %d", len(want), len(s.sent))
	}
	for i, w := range want {
		if got := s.sent[i].(protocol.ProgressUpdate); got != w {
			t.Fatalf("update %d: expected %+v, got %+v", i, w, got)
		}
	}
}

type fakeJournal struct{ notes []string }

func (f *fakeJournal) Report(actionID, status, note string) {
	f.notes = append(f.notes, actionID+"/"+status+"/"+note)
}

func TestReporter_CopiesToJournal(t *testing.T) {
	j := &fakeJournal{}
	r := NewReporter(&fakeSender{}, nil)
	r.SetJournal(j)
	r.Report("a1", protocol.StatusCancelled, "cancelled while waiting for crafting table")
	if len(j.notes) != 1 || j.notes[0] != "a1/cancelled/cancelled while waiting for crafting table" {
		t.Fatalf("unexpected journal %v", j.notes)
	}
}
