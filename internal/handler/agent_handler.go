package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bullpen/internal/catalog"
	"github.com/hitoshi/bullpen/internal/model"
)

// CatalogInterface はエージェントハンドラーが必要とするカタログインターフェース。
// catalog.Registryの部分集合として定義する。
type CatalogInterface interface {
	Find(id string) (*model.Agent, error)
	Groups() []catalog.Group
}

// AgentHandler はエージェントカタログのHTTPハンドラー。
type AgentHandler struct {
	registry CatalogInterface
}

// NewAgentHandler はAgentHandlerを生成する。
func NewAgentHandler(registry CatalogInterface) *AgentHandler {
	return &AgentHandler{registry: registry}
}

// agentResponse はエージェント情報のAPIレスポンス。
type agentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	EmbedURL    string `json:"embed_url"`
	Icon        string `json:"icon"`
	Group       string `json:"group"`
}

// agentGroupResponse はグループ化されたカタログのAPIレスポンス。
type agentGroupResponse struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Agents []agentResponse `json:"agents"`
}

// ListAgents はグループ順のエージェントカタログを返す。
// GET /api/agents
func (h *AgentHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	groups := h.registry.Groups()

	resp := make([]agentGroupResponse, 0, len(groups))
	for _, g := range groups {
		agents := make([]agentResponse, 0, len(g.Agents))
		for i := range g.Agents {
			agents = append(agents, toAgentResponse(&g.Agents[i]))
		}
		resp = append(resp, agentGroupResponse{
			ID:     g.ID,
			Title:  g.Title,
			Agents: agents,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"groups": resp})
}

// GetAgent はエージェント詳細を返す。
// GET /api/agents/{id}
func (h *AgentHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")

	agent, err := h.registry.Find(agentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toAgentResponse(agent))
}

func toAgentResponse(agent *model.Agent) agentResponse {
	return agentResponse{
		ID:          agent.ID,
		Name:        agent.Name,
		Description: agent.Description,
		EmbedURL:    agent.EmbedURL,
		Icon:        agent.Icon,
		Group:       agent.Group,
	}
}
