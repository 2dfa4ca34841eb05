package visit

import "testing"

func TestCanCancelAndComplete(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{Scheduled, true},
		{Completed, false},
		{Cancelled, false},
	}
	for _, tt := range tests {
		v := &Visit{Status: tt.status}
		if got := CanCancel(v); got != tt.want {
			t.Errorf("CanCancel(%s) = %v, want %v", tt.status, got, tt.want)
		}
		if got := CanMarkComplete(v); got != tt.want {
			t.Errorf("CanMarkComplete(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{Scheduled, Completed, true},
		{Scheduled, Cancelled, true},
		{Scheduled, Scheduled, false},
		{Completed, Scheduled, false},
		{Completed, Cancelled, false},
		{Cancelled, Scheduled, false},
		{Cancelled, Completed, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestNeedsDecision(t *testing.T) {
	tests := []struct {
		name  string
		visit Visit
		role  Role
		want  bool
	}{
		{"completed tenant absent", Visit{Status: Completed}, Tenant, true},
		{"completed tenant undecided", Visit{Status: Completed, TenantDecision: Undecided}, Tenant, true},
		{"completed tenant interested", Visit{Status: Completed, TenantDecision: Interested}, Tenant, false},
		{"completed tenant not interested", Visit{Status: Completed, TenantDecision: NotInterested}, Tenant, false},
		{"owner reads own field", Visit{Status: Completed, TenantDecision: Interested}, Owner, true},
		{"owner decided", Visit{Status: Completed, OwnerDecision: NotInterested}, Owner, false},
		{"staff never", Visit{Status: Completed}, Staff, false},
		{"scheduled", Visit{Status: Scheduled}, Tenant, false},
		{"cancelled", Visit{Status: Cancelled}, Owner, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsDecision(&tt.visit, tt.role); got != tt.want {
				t.Errorf("NeedsDecision = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsMatch(t *testing.T) {
	decisions := []Decision{"", Interested, NotInterested, Undecided}
	for _, td := range decisions {
		for _, od := range decisions {
			v := &Visit{Status: Completed, TenantDecision: td, OwnerDecision: od}
			want := td == Interested && od == Interested
			if got := IsMatch(v); got != want {
				t.Errorf("IsMatch(tenant=%q, owner=%q) = %v, want %v", td, od, got, want)
			}
		}
	}
}

func TestActions(t *testing.T) {
	scheduled := &Visit{Status: Scheduled}
	if got := Actions(scheduled, Tenant); len(got) != 2 || got[0] != ActionComplete || got[1] != ActionCancel {
		t.Errorf("scheduled actions = %v", got)
	}

	completed := &Visit{Status: Completed, TenantDecision: Interested}
	if got := Actions(completed, Tenant); len(got) != 1 || got[0] != ActionDecide {
		t.Errorf("completed actions = %v", got)
	}
	if got := Actions(completed, Staff); len(got) != 0 {
		t.Errorf("staff actions on completed = %v, want none", got)
	}

	if got := Actions(&Visit{Status: Cancelled}, Owner); len(got) != 0 {
		t.Errorf("cancelled actions = %v, want none", got)
	}
}
