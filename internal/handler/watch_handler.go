package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bullpen/internal/gate"
	"github.com/hitoshi/bullpen/internal/middleware"
	"github.com/hitoshi/bullpen/internal/model"
)

// ProfileWatcher はプロフィール更新の購読インターフェース。
// watch.Hubの部分集合として定義する。
type ProfileWatcher interface {
	Subscribe(profileID string) (<-chan model.Profile, func())
	TotalSubscribers() int
}

// WatchSubscriberGauge は購読者数のメトリクス更新インターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type WatchSubscriberGauge interface {
	SetWatchSubscribers(count int)
}

// ProfileGetter はプロフィールの現在値取得インターフェース。
type ProfileGetter interface {
	Get(ctx context.Context, id string) (*model.Profile, error)
}

// WatchHandler はプロフィール承認状態のライブ配信（SSE）ハンドラー。
type WatchHandler struct {
	hub      ProfileWatcher
	profiles ProfileGetter
	gauge    WatchSubscriberGauge
}

// NewWatchHandler はWatchHandlerを生成する。
func NewWatchHandler(hub ProfileWatcher, profiles ProfileGetter, gauge WatchSubscriberGauge) *WatchHandler {
	return &WatchHandler{
		hub:      hub,
		profiles: profiles,
		gauge:    gauge,
	}
}

// watchEvent はSSEで配信するプロフィール更新イベント。
type watchEvent struct {
	Decision string           `json:"decision"`
	Profile  *profileResponse `json:"profile"`
}

// Watch はプロフィール更新をServer-Sent Eventsで配信する。
// 接続時に現在のスナップショットを1件送信し、以降は更新のたびに配信する。
// クライアント切断またはコンテキストキャンセルで購読を解除する。
// GET /api/profile/watch
func (h *WatchHandler) Watch(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// 購読を先に張ってからスナップショットを読む。
	// 逆順だと読み取りと購読開始の間の更新を取りこぼす。
	ch, cancel := h.hub.Subscribe(profileID)
	defer func() {
		cancel()
		h.gauge.SetWatchSubscribers(h.hub.TotalSubscribers())
	}()
	h.gauge.SetWatchSubscribers(h.hub.TotalSubscribers())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// 現在のスナップショットを初回イベントとして送信
	profile, err := h.profiles.Get(r.Context(), profileID)
	if err != nil {
		slog.Error("failed to load profile snapshot for watch",
			slog.String("profile_id", profileID),
			slog.String("error", err.Error()),
		)
	} else {
		writeWatchEvent(w, *profile)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case updated, ok := <-ch:
			if !ok {
				// 購読の張り替えなどでクローズされた
				return
			}
			writeWatchEvent(w, updated)
			flusher.Flush()
		}
	}
}

func writeWatchEvent(w http.ResponseWriter, profile model.Profile) {
	event := watchEvent{
		Decision: string(gate.Decide(true, profile.Status)),
		Profile:  toProfileResponse(&profile),
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal watch event", slog.String("error", err.Error()))
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
