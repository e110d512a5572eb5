package gate

import (
	"testing"

	"github.com/hitoshi/bullpen/internal/model"
)

// Decideの全入力域に対する判定を検証する
func TestDecide(t *testing.T) {
	tests := []struct {
		name            string
		identityPresent bool
		status          model.ProfileStatus
		want            Decision
	}{
		// identityなし: statusに関わらずunauthenticated
		{"identityなし_status空", false, "", DecisionUnauthenticated},
		{"identityなし_pending", false, model.StatusPending, DecisionUnauthenticated},
		{"identityなし_approved", false, model.StatusApproved, DecisionUnauthenticated},
		{"identityなし_rejected", false, model.StatusRejected, DecisionUnauthenticated},

		// identityあり
		{"identityあり_pending", true, model.StatusPending, DecisionWaiting},
		{"identityあり_rejected", true, model.StatusRejected, DecisionWaiting},
		{"identityあり_approved", true, model.StatusApproved, DecisionAuthorized},

		// プロフィール未読込: waiting/authorizedのいずれでもなくloading
		{"identityあり_status空", true, "", DecisionLoading},
		{"identityあり_status未知", true, model.ProfileStatus("unknown"), DecisionLoading},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.identityPresent, tt.status)
			if got != tt.want {
				t.Errorf("Decide(%v, %q) = %q, want %q", tt.identityPresent, tt.status, got, tt.want)
			}
		})
	}
}

// status未知の場合にアクセスが許可されないことを検証する
func TestDecide_UnknownStatusNeverAuthorizes(t *testing.T) {
	for _, status := range []model.ProfileStatus{"", "loading", "null", "APPROVED"} {
		got := Decide(true, status)
		if got == DecisionAuthorized || got == DecisionWaiting {
			t.Errorf("Decide(true, %q) = %q; 未知のstatusでwaiting/authorizedを返してはならない", status, got)
		}
	}
}

// 同一入力に対して常に同一の判定を返すこと（決定性）
func TestDecide_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if got := Decide(true, model.StatusApproved); got != DecisionAuthorized {
			t.Fatalf("Decide() = %q, want %q", got, DecisionAuthorized)
		}
	}
}
