package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (r *recorder) Publish(subj string, data []byte) error {
	if r.err != nil {
		return r.err
	}
	r.subjects = append(r.subjects, subj)
	r.payloads = append(r.payloads, data)
	return nil
}

func TestNatsNotifier_Cleaned(t *testing.T) {
	rec := &recorder{}
	n := NewNatsNotifier(rec)
	msg := &Cleaned{
		RunID:    "run",
		Kind:     "sectionresults",
		Document: "sectionresults_2017-03-12_1234_St. Pete",
		RaceID:   "1234",
		Rows:     42,
		Artifact: "cleandata/section results/x.pq",
		Time:     time.Date(2017, 3, 12, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, n.Cleaned(context.Background(), msg))

	assert.Equal(t, []string{"racetiming.sectionresults.cleaned"}, rec.subjects)
	var got Cleaned
	require.NoError(t, json.Unmarshal(rec.payloads[0], &got))
	assert.Equal(t, *msg, got)
}

func TestNatsNotifier_PublishError(t *testing.T) {
	rec := &recorder{err: errors.New("down")}
	n := NewNatsNotifier(rec)
	err := n.Cleaned(context.Background(), &Cleaned{Kind: "results"})
	require.Error(t, err)
	assert.ErrorIs(t, err, rec.err)
	assert.Contains(t, err.Error(), "racetiming.results.cleaned")
}

func TestNatsNotifier_CanceledContext(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewNatsNotifier(rec).Cleaned(ctx, &Cleaned{Kind: "results"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.subjects)
}
