// Package catalog はエージェントカタログの静的レジストリを提供する。
package catalog

import (
	"fmt"

	"github.com/hitoshi/bullpen/internal/model"
)

// Group はダッシュボード表示用のエージェントグループ。
type Group struct {
	ID     string        // グループID
	Title  string        // 表示タイトル
	Agents []model.Agent // 定義順を保持する
}

// グループID定数
const (
	GroupAutoValidation = "auto-validation"
	GroupAutoAnalysis   = "auto-analysis"
	GroupTalkAnalysis   = "talk-analysis"
	GroupFullStep       = "full-step"
)

// agents は提供する全エージェントの定義。
// 埋め込みURLは外部ホストされたエージェントを指す。
var agents = []model.Agent{
	{
		ID:          "autocustomer",
		Name:        "step1 自動 顧客課題仮説検証",
		Description: "事業アイデアに対する顧客ペルソナ・課題仮説・インタビュー・仮説検証を実行",
		EmbedURL:    "https://startup-mentor-orchestrator-836633887166.us-west1.run.app/?code=corn2020",
		Icon:        "📊",
		Group:       GroupAutoValidation,
	},
	{
		ID:          "aotoproblem",
		Name:        "step1 自動 課題定義",
		Description: "アイデアに合った顧客課題の定義",
		EmbedURL:    "https://cornax-step1-problem-definition-ai-124105313078.us-west1.run.app/?code=corn2020",
		Icon:        "📊",
		Group:       GroupAutoAnalysis,
	},
	{
		ID:          "automerket",
		Name:        "step2 自動 競合分析",
		Description: "課題定義に基づく市場調査",
		EmbedURL:    "https://cornax-step2-market-review-124105313078.us-west1.run.app/?code=corn2020",
		Icon:        "🧐",
		Group:       GroupAutoAnalysis,
	},
	{
		ID:          "talkmarket",
		Name:        "step1 対話で競合分析",
		Description: "競合製品に関する調査",
		EmbedURL:    "https://corn-competitor-analysis-ai-124105313078.us-west1.run.app/?code=corn2020",
		Icon:        "📊",
		Group:       GroupTalkAnalysis,
	},
	{
		ID:          "talkproblem",
		Name:        "step2 対話で課題定義",
		Description: "顧客観察を通じた課題定義",
		EmbedURL:    "https://corn-ax-problem-definition-ai-mentor-v1-0-124105313078.us-west1.run.app/?code=corn2020",
		Icon:        "🧐",
		Group:       GroupTalkAnalysis,
	},
	{
		ID:          "talksolution",
		Name:        "step3 対話で解決提案",
		Description: "課題解決のためのコア技術提案",
		EmbedURL:    "https://corn-solution-architect-124105313078.us-west1.run.app/?code=corn2020",
		Icon:        "💡",
		Group:       GroupTalkAnalysis,
	},
	{
		ID:          "autonero",
		Name:        "fullstep 自動 顧客開発",
		Description: "事業アイデアを一括で顧客開発計画書にまとめるメンター",
		EmbedURL:    "https://nero-corn-customer-development-ai-124105313078.us-west1.run.app/?code=corn2020",
		Icon:        "😄",
		Group:       GroupFullStep,
	},
	{
		ID:          "talkjjangga2",
		Name:        "fullstep 対話で顧客開発",
		Description: "段階的に対話しながら顧客開発計画書を作成するメンター",
		EmbedURL:    "https://corn-jjangga-ai-2-705803452864.us-west1.run.app/?code=cornchip",
		Icon:        "🦸‍♂️",
		Group:       GroupFullStep,
	},
}

// groupOrder はダッシュボードでの表示順。
var groupOrder = []struct {
	id    string
	title string
}{
	{GroupAutoValidation, "自動 顧客課題仮説検証"},
	{GroupAutoAnalysis, "自動 課題定義 & 競合分析"},
	{GroupTalkAnalysis, "対話型 分析 & 解決"},
	{GroupFullStep, "Full Step 顧客開発"},
}

// URLValidator はエージェント埋め込みURLの事前検証インターフェース。
// security.SSRFGuardServiceの部分集合として定義する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Registry はエージェントカタログの読み取り専用レジストリ。
type Registry struct {
	byID   map[string]model.Agent
	groups []Group
}

// NewRegistry はカタログを構築する。
// 全エージェントの埋め込みURLをvalidatorで検証し、
// 危険なURL（プライベートIP・不正スキーム等）が含まれる場合はエラーを返す。
func NewRegistry(validator URLValidator) (*Registry, error) {
	byID := make(map[string]model.Agent, len(agents))
	for _, a := range agents {
		if err := validator.ValidateURL(a.EmbedURL); err != nil {
			return nil, fmt.Errorf("unsafe embed URL for agent %s: %w", a.ID, err)
		}
		if _, dup := byID[a.ID]; dup {
			return nil, fmt.Errorf("duplicate agent id: %s", a.ID)
		}
		byID[a.ID] = a
	}

	groups := make([]Group, 0, len(groupOrder))
	for _, g := range groupOrder {
		group := Group{ID: g.id, Title: g.title}
		for _, a := range agents {
			if a.Group == g.id {
				group.Agents = append(group.Agents, a)
			}
		}
		groups = append(groups, group)
	}

	return &Registry{byID: byID, groups: groups}, nil
}

// Find はIDでエージェントを検索する。見つからない場合はエラーを返す。
func (r *Registry) Find(id string) (*model.Agent, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, model.NewAgentNotFoundError(id)
	}
	return &a, nil
}

// All は定義順の全エージェントを返す。
func (r *Registry) All() []model.Agent {
	result := make([]model.Agent, len(agents))
	copy(result, agents)
	return result
}

// Groups は表示順のエージェントグループを返す。
func (r *Registry) Groups() []Group {
	return r.groups
}
