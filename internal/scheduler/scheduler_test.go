package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/homemade/saka/internal/config"
	"github.com/homemade/saka/keywords"
)

type fakeRunner struct {
	triggers []keywords.Trigger
	err      error
}

func (f *fakeRunner) ExtractAndUploadKeywords(ctx context.Context, trigger keywords.Trigger) (string, error) {
	f.triggers = append(f.triggers, trigger)
	return "ok", f.err
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	_, err := New(context.Background(), config.ScheduleConfig{Spec: "noon daily"}, &fakeRunner{}, nil)
	if err == nil {
		t.Error("Expected error for invalid schedule")
	}
}

func TestNextUsesLocation(t *testing.T) {
	location, err := time.LoadLocation("Australia/Melbourne")
	if err != nil {
		t.Skip("time zone database unavailable")
	}
	s, err := New(context.Background(), config.ScheduleConfig{Spec: config.DefaultSchedule, Location: location}, &fakeRunner{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop()

	next := s.Next()
	if next.IsZero() {
		t.Fatal("Expected next run to be scheduled")
	}
	if have := next.In(location); have.Hour() != 12 || have.Minute() != 0 {
		t.Errorf("Expected result: 12:00 but have: %s", have.Format("15:04"))
	}
}

func TestInvoke(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"failure", errors.New("upload failed")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{err: tt.err}
			s, err := New(context.Background(), config.ScheduleConfig{Spec: config.DefaultSchedule}, runner, nil)
			if err != nil {
				t.Fatal(err)
			}
			s.Invoke()
			if len(runner.triggers) != 1 || runner.triggers[0].Type != TriggerTypeSchedule || runner.triggers[0].ID == "" {
				t.Errorf("Unexpected triggers: %+v", runner.triggers)
			}
		})
	}
}
