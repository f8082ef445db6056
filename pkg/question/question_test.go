package question

import (
	"context"
	"testing"
	"time"

	"github.com/korjavin/loversspace/pkg/account"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	text   string
	err    error
	delay  time.Duration
	calls  int
	recent []string
}

func (f *fakeGenerator) GenerateDailyQuestion(ctx context.Context, recent []string) (string, error) {
	f.calls++
	f.recent = recent
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func newTestService(t *testing.T, gen Generator) *Service {
	t.Helper()
	store, err := storage.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, gen, 100*time.Millisecond)
}

func couple() (account.Principal, account.Principal) {
	a := models.User{ID: 1, Username: "alice"}
	b := models.User{ID: 2, Username: "bob"}
	return account.Principal{User: a, Partner: &b}, account.Principal{User: b, Partner: &a}
}

var now = time.Date(2026, 10, 19, 9, 30, 0, 0, time.Local)

func TestTodayUsesGeneratorOnce(t *testing.T) {
	gen := &fakeGenerator{text: "  What is your favourite noodle? "}
	s := newTestService(t, gen)
	a, b := couple()

	q, err := s.Today(context.Background(), a, now)
	require.NoError(t, err)
	assert.Equal(t, "What is your favourite noodle?", q.Text)
	assert.Equal(t, models.SourceAI, q.Source)
	assert.Equal(t, "2026-10-19", q.Date)

	// the partner sees the same question, no new call
	q2, err := s.Today(context.Background(), b, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, q.Text, q2.Text)
	assert.Equal(t, 1, gen.calls)
}

func TestTodayFallsBack(t *testing.T) {
	tests := []struct {
		name string
		gen  Generator
	}{
		{"no generator", nil},
		{"error", &fakeGenerator{err: errors.New("quota exceeded")}},
		{"empty text", &fakeGenerator{text: "   "}},
		{"timeout", &fakeGenerator{text: "late", delay: time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, tt.gen)
			a, _ := couple()

			q, err := s.Today(context.Background(), a, now)
			require.NoError(t, err)
			assert.Equal(t, models.SourceFallback, q.Source)
			assert.Equal(t, s.Fallback("2026-10-19"), q.Text)
		})
	}
}

func TestFallbackIsDeterministic(t *testing.T) {
	s := newTestService(t, nil)

	assert.Equal(t, s.Fallback("2026-10-19"), s.Fallback("2026-10-19"))
	assert.NotEqual(t, s.Fallback("2026-10-19"), s.Fallback("2026-10-20"))
	assert.Equal(t, s.Fallback("1969-12-31"), s.pool[len(s.pool)-1])
	assert.Equal(t, s.pool[0], s.Fallback("not a date"))
}

func TestAnswerAndReveal(t *testing.T) {
	s := newTestService(t, &fakeGenerator{text: "Best trip?"})
	a, b := couple()

	_, err := s.Answer(a, now, "Kyoto")
	assert.ErrorIs(t, err, ErrNoQuestion)

	_, err = s.Today(context.Background(), a, now)
	require.NoError(t, err)

	_, err = s.Answer(a, now, "   ")
	assert.ErrorIs(t, err, ErrAnswerRequired)

	q, err := s.Answer(a, now, "Kyoto")
	require.NoError(t, err)

	// bob has not answered: he knows alice answered but cannot read it
	v := s.View(b, *q)
	assert.Nil(t, v.Mine)
	assert.True(t, v.PartnerAnswered)
	assert.Nil(t, v.Partner)

	q, err = s.Answer(b, now, "Iceland")
	require.NoError(t, err)

	v = s.View(b, *q)
	require.NotNil(t, v.Mine)
	require.NotNil(t, v.Partner)
	assert.Equal(t, "Iceland", v.Mine.Text)
	assert.Equal(t, "Kyoto", v.Partner.Text)

	// answers can be replaced
	q, err = s.Answer(a, now, "Kyoto again")
	require.NoError(t, err)
	v = s.View(a, *q)
	assert.Equal(t, "Kyoto again", v.Mine.Text)
	assert.Equal(t, "Iceland", v.Partner.Text)
	assert.True(t, v.HasPartner)
}

func TestHistoryNewestFirst(t *testing.T) {
	gen := &fakeGenerator{text: "q"}
	s := newTestService(t, gen)
	a, _ := couple()

	for i := 0; i < 3; i++ {
		_, err := s.Today(context.Background(), a, now.AddDate(0, 0, i))
		require.NoError(t, err)
	}
	assert.Len(t, gen.recent, 2)

	history, err := s.History(a, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2026-10-21", history[0].Date)
	assert.Equal(t, "2026-10-20", history[1].Date)

	solo := account.Principal{User: models.User{ID: 1}}
	history, err = s.History(solo, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}
