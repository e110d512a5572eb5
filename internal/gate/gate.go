// Package gate はアクセス可否の判定を提供する。
// 判定は {identityの有無, 承認状態} のみに依存する純粋関数で、副作用を持たない。
package gate

import "github.com/hitoshi/bullpen/internal/model"

// Decision はルーティング先を決めるアクセス判定の結果を表す。
type Decision string

const (
	// DecisionUnauthenticated は未ログイン。ログインページへ誘導する。
	DecisionUnauthenticated Decision = "unauthenticated"
	// DecisionLoading はプロフィール未読込の過渡状態。
	// 承認状態が判明するまでアクセスを許可してはならない。
	DecisionLoading Decision = "loading"
	// DecisionWaiting は承認待ちまたは拒否済み。承認待ちページへ誘導する。
	DecisionWaiting Decision = "waiting"
	// DecisionAuthorized は承認済み。アプリケーションへのアクセスを許可する。
	DecisionAuthorized Decision = "authorized"
)

// Decide はidentityの有無と承認状態からアクセス判定を返す。
// statusが空（プロフィール未読込）の場合はDecisionLoadingを返し、
// waiting/authorizedのいずれとも扱わない。
// 定義域全体（4値のstatus + identity有無）について全域的で決定的。
func Decide(identityPresent bool, status model.ProfileStatus) Decision {
	if !identityPresent {
		return DecisionUnauthenticated
	}

	switch status {
	case model.StatusApproved:
		return DecisionAuthorized
	case model.StatusPending, model.StatusRejected:
		return DecisionWaiting
	default:
		return DecisionLoading
	}
}
