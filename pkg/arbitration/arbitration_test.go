package arbitration

import (
	"context"
	"testing"
	"time"

	"github.com/hyperlicked/betagent/pkg/chainclient"
)

type fakeReader struct {
	statuses []chainclient.BetStatus
	calls    int
}

func (f *fakeReader) GetBet(ctx context.Context, betID uint64) (chainclient.BetInfo, error) {
	idx := f.calls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.calls++
	return chainclient.BetInfo{Status: f.statuses[idx]}, nil
}

func TestPollUntilSettledReturnsOnceSettled(t *testing.T) {
	reader := &fakeReader{statuses: []chainclient.BetStatus{
		chainclient.BetStatusInArbitration,
		chainclient.BetStatusInArbitration,
		chainclient.BetStatusSettled,
	}}
	c := &Client{reader: reader, pollInterval: time.Millisecond}

	status, err := c.PollUntilSettled(context.Background(), 1, time.Second)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if status != chainclient.BetStatusSettled {
		t.Errorf("status = %s, want settled", status)
	}
	if reader.calls != 3 {
		t.Errorf("calls = %d, want 3", reader.calls)
	}
}

func TestPollUntilSettledGivesUpAtTimeout(t *testing.T) {
	reader := &fakeReader{statuses: []chainclient.BetStatus{chainclient.BetStatusInArbitration}}
	c := &Client{reader: reader, pollInterval: 2 * time.Millisecond}

	status, err := c.PollUntilSettled(context.Background(), 1, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if status != chainclient.BetStatusInArbitration {
		t.Errorf("status = %s, want in_arbitration", status)
	}
}
