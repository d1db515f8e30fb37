package exitstatus

import "testing"

func TestAlwaysCleanIntoStatus(t *testing.T) {
	t.Run("any value yields Clean", func(t *testing.T) {
		for _, v := range []int{-1, 0, 1, 42} {
			a := NewAlwaysClean(v)
			if got := a.ExitStatus(); got != Clean {
				t.Errorf("AlwaysClean(%d).ExitStatus() = %v, want Clean", v, got)
			}
		}
	})
}

func TestWithStatusFromAlwaysClean(t *testing.T) {
	a := NewAlwaysClean("payload")
	w := WithStatusFromAlwaysClean(a)
	if w.Status != Clean {
		t.Fatalf("status = %v, want Clean", w.Status)
	}
	if w.Value != "payload" {
		t.Fatalf("value = %q, want %q", w.Value, "payload")
	}
}

func TestShouldTerminateWithStatusFromClean(t *testing.T) {
	cases := []struct {
		name      string
		terminate bool
		wantSome  bool
	}{
		{"requests termination", true, true},
		{"continues", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clean := NewShouldTerminateClean(7, tc.terminate)
			got := FromShouldTerminateClean(clean)
			if got.Value != 7 {
				t.Fatalf("value = %d, want 7", got.Value)
			}
			if got.ShouldTerminate() != tc.wantSome {
				t.Fatalf("ShouldTerminate() = %v, want %v", got.ShouldTerminate(), tc.wantSome)
			}
			if tc.wantSome && got.Status() != Clean {
				t.Fatalf("status = %v, want Clean", got.Status())
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	cases := []struct {
		name string
		in   []ExitStatus
		want ExitStatus
	}{
		{"all clean", []ExitStatus{Clean, Clean, Clean}, Clean},
		{"one spurious", []ExitStatus{Clean, Spurious, Clean}, Spurious},
		{"empty", nil, Clean},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Aggregate(tc.in...); got != tc.want {
				t.Errorf("Aggregate(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestCarrierDominatesValueExitStatus(t *testing.T) {
	// AlwaysClean::with_value(v) -> WithStatus::from(_) -> status is Clean
	// regardless of what v's own ExitStatus would report.
	inner := NewWithStatus(struct{}{}, Spurious)
	wrapped := WithStatusFromAlwaysClean(NewAlwaysClean(inner))
	if wrapped.Status != Clean {
		t.Fatalf("carrier status = %v, want Clean regardless of wrapped value", wrapped.Status)
	}
}

func TestSplitPreservesStatus(t *testing.T) {
	w := NewWithStatus(99, Spurious)
	value, empty := w.Split()
	if value != 99 {
		t.Fatalf("split value = %d, want 99", value)
	}
	if empty.ExitStatus() != Spurious {
		t.Fatalf("split status = %v, want Spurious", empty.ExitStatus())
	}
}

func TestMapValueWithStatusChangesType(t *testing.T) {
	w := NewWithStatus(3, Clean)
	mapped := MapValueWithStatus(w, func(n int) string { return "n" })
	if mapped.Value != "n" || mapped.Status != Clean {
		t.Fatalf("mapped = %+v", mapped)
	}
}
