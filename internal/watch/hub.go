// Package watch はプロフィール更新のライブ配信を提供する。
// プロフィールへの書き込みはすべてこのプロセスを経由するため、
// プロセス内のファンアウトでストアのスナップショットリスナーと同等の即時性が得られる。
package watch

import (
	"sync"

	"github.com/hitoshi/bullpen/internal/model"
)

// subscriberBuffer は購読チャネルのバッファサイズ。
// 受信が追いつかない購読者には配信をスキップする（書き込み側をブロックしない）。
const subscriberBuffer = 8

// subscription は1つの購読を表す。
type subscription struct {
	profileID string
	ch        chan model.Profile
}

// Hub はプロフィールIDごとの購読者に更新をファンアウトする。
// セッションごとにアクティブな購読は1つが原則で、購読を張り替える場合は
// 必ず古い購読のキャンセルを先に行うこと（旧セッションへの更新漏出を防ぐ）。
type Hub struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

// NewHub は空のHubを生成する。
func NewHub() *Hub {
	return &Hub{
		subs: make(map[int]*subscription),
	}
}

// Subscribe は指定プロフィールの更新購読を登録し、
// 受信チャネルと明示的なキャンセルハンドルを返す。
// キャンセルは冪等で、呼び出し後にチャネルはクローズされる。
func (h *Hub) Subscribe(profileID string) (<-chan model.Profile, func()) {
	sub := &subscription{
		profileID: profileID,
		ch:        make(chan model.Profile, subscriberBuffer),
	}

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(sub.ch)
			h.mu.Unlock()
		})
	}

	return sub.ch, cancel
}

// Publish は更新されたプロフィールを該当する全購読者に配信する。
// 受信が追いつかない購読者はスキップする（ブロックしない）。
func (h *Hub) Publish(profile model.Profile) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.profileID != profile.ID {
			continue
		}
		select {
		case sub.ch <- profile:
		default:
			// 受信の遅い購読者には配信しない。次の更新で追いつく。
		}
	}
}

// SubscriberCount は指定プロフィールの現在の購読者数を返す。
// テストおよびメトリクス用。
func (h *Hub) SubscriberCount(profileID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, sub := range h.subs {
		if sub.profileID == profileID {
			count++
		}
	}
	return count
}

// TotalSubscribers は全購読者数を返す。メトリクス用。
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
