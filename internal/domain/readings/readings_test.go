package readings

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

type testRepo struct {
	byUser map[string]map[string]Reading
}

func newTestRepo() *testRepo {
	return &testRepo{byUser: map[string]map[string]Reading{}}
}

func (r *testRepo) Save(_ context.Context, rd Reading) error {
	if r.byUser[rd.UserID] == nil {
		r.byUser[rd.UserID] = map[string]Reading{}
	}
	r.byUser[rd.UserID][rd.ID] = rd
	return nil
}

func (r *testRepo) Get(_ context.Context, userID, id string) (Reading, error) {
	rd, ok := r.byUser[userID][id]
	if !ok {
		return Reading{}, ErrNotFound
	}
	return rd, nil
}

func (r *testRepo) ListLatest(_ context.Context, userID string, limit int) ([]Reading, error) {
	out := make([]Reading, 0)
	for _, rd := range r.byUser[userID] {
		out = append(out, rd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *testRepo) Delete(_ context.Context, userID, id string) error {
	delete(r.byUser[userID], id)
	return nil
}

func TestThresholds_Evaluate(t *testing.T) {
	th := DefaultThresholds()

	cases := []struct {
		name  string
		frame Frame
		want  []string
	}{
		{"all normal", Frame{Pulse: 72, Temperature: 36.6, Humidity: 45}, nil},
		{"limits are inclusive", Frame{Pulse: 100, Temperature: 37.5, Humidity: 30}, nil},
		{"high pulse", Frame{Pulse: 101, Temperature: 36.6, Humidity: 45}, []string{"High pulse!"}},
		{"low everything", Frame{Pulse: 59, Temperature: 35.9, Humidity: 29.9}, []string{"Low pulse!", "Low temperature!", "Low humidity!"}},
		{"mixed order", Frame{Pulse: 72, Temperature: 38.2, Humidity: 71}, []string{"High temperature!", "High humidity!"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alerts := th.Evaluate(tc.frame)
			if len(alerts) != len(tc.want) {
				t.Fatalf("expected %d alerts, got %#v", len(tc.want), alerts)
			}
			for i, a := range alerts {
				if a.Message != tc.want[i] {
					t.Fatalf("alert %d: expected %q, got %q", i, tc.want[i], a.Message)
				}
			}
		})
	}

	got := Summary(th.Evaluate(Frame{Pulse: 120, Temperature: 36.6, Humidity: 20}))
	if got != "High pulse! Low humidity!" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(` {"pulse":72,"temperature":36.6,"humidity":45.5}` + "\r\n"))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f.Pulse != 72 || f.Temperature != 36.6 || f.Humidity != 45.5 {
		t.Fatalf("unexpected frame %#v", f)
	}

	bad := []string{
		``,
		`not json`,
		`{"pulse":72,"temperature":36.6}`,
		`{"pulse":72.5,"temperature":36.6,"humidity":40}`,
		`{"pulse":-1,"temperature":36.6,"humidity":40}`,
	}
	for _, in := range bad {
		if _, err := ParseFrame([]byte(in)); !errors.Is(err, ErrInvalidFrame) {
			t.Fatalf("ParseFrame(%q): expected ErrInvalidFrame, got %v", in, err)
		}
	}
}

func TestService_RecordAndList(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo, DefaultThresholds())
	ctx := context.Background()

	base := time.Date(2025, 4, 2, 8, 30, 0, 0, time.UTC)
	for i, p := range []int{70, 110, 80} {
		ts := base.Add(time.Duration(i) * time.Second)
		svc.now = func() time.Time { return ts }
		rec, err := svc.Record(ctx, "u1", Frame{Pulse: p, Temperature: 36.6, Humidity: 45})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if i == 1 && (len(rec.Alerts) != 1 || rec.Alerts[0].Message != "High pulse!") {
			t.Fatalf("expected a high pulse alert, got %#v", rec.Alerts)
		}
	}

	got, err := svc.Get(ctx, "u1", "2025-04-02_08:30:01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Timestamp != "2025-04-02 08:30:01" || got.Pulse != 110 {
		t.Fatalf("unexpected reading %#v", got)
	}

	list, err := svc.List(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Pulse != 80 || list[1].Pulse != 110 {
		t.Fatalf("expected newest first, got %#v", list)
	}

	if err := svc.Delete(ctx, "u1", got.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "u1", got.ID); err != nil {
		t.Fatalf("Delete must be idempotent, got %v", err)
	}

	if _, err := svc.Record(ctx, " ", Frame{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without user, got %v", err)
	}
}
