package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stakehub-next/internal/cache"
	"github.com/stakehub-next/internal/config"
	"github.com/stakehub-next/internal/models"
	"github.com/stakehub-next/internal/queue"
	"github.com/stakehub-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const orgExportCacheKeyPrefix = "org:export:"

// OrgNode 组织架构节点（个人业绩 + 团队业绩汇总结果）
type OrgNode struct {
	WalletAddress  string       `json:"wallet_address"`
	ReferralCode   string       `json:"referral_code"`
	ReferrerWallet string       `json:"referrer_wallet,omitempty"`
	Level          int          `json:"level"`
	PersonalSales  models.Money `json:"personal_sales"`
	TeamSales      models.Money `json:"team_sales"`
	RegisteredAt   time.Time    `json:"registered_at"`
	Children       []*OrgNode   `json:"children,omitempty"`
}

// OrgTreeNode 前端树形图投影节点
type OrgTreeNode struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
	Children   []*OrgTreeNode    `json:"children,omitempty"`
}

// OrganizationService 组织架构聚合服务
type OrganizationService struct {
	cfg         *config.Config
	repo        repository.OrganizationRepository
	queueClient *queue.Client

	exportMu     sync.Mutex
	localExports map[string]localExportEntry
}

type localExportEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewOrganizationService 创建组织架构服务
func NewOrganizationService(cfg *config.Config, repo repository.OrganizationRepository, queueClient *queue.Client) *OrganizationService {
	return &OrganizationService{
		cfg:         cfg,
		repo:        repo,
		queueClient: queueClient,
	}
}

// BuildForest 构建全量推荐森林。
// 时间窗口为闭区间，仅过滤业绩归属（invested_at），不过滤成员。
// 快照读取失败时错误向上传播，不吞成空结果。
func (s *OrganizationService) BuildForest(investedFrom, investedTo *time.Time) ([]*OrgNode, error) {
	snapshot, err := s.repo.Snapshot(investedFrom, investedTo)
	if err != nil {
		return nil, err
	}
	forest, _, err := buildOrgForest(snapshot)
	return forest, err
}

// BuildTeam 构建指定钱包的团队子树（层级为全局层级）
func (s *OrganizationService) BuildTeam(wallet string, investedFrom, investedTo *time.Time) (*OrgNode, error) {
	normalized, err := NormalizeWalletAddress(wallet)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.repo.Snapshot(investedFrom, investedTo)
	if err != nil {
		return nil, err
	}
	_, index, err := buildOrgForest(snapshot)
	if err != nil {
		return nil, err
	}
	node, ok := index[normalized]
	if !ok {
		return nil, ErrNotFound
	}
	return node, nil
}

// buildOrgForest 按快照构建森林并完成业绩上卷：
// 个人业绩按钱包归一化累加 → 节点物化 → 单趟挂接（上级缺失者为根）
// → 迭代后序上卷团队业绩与层级。若存在从任何根都不可达的节点，
// 说明推荐关系成环，返回 ErrReferralCycle。
func buildOrgForest(snapshot *repository.OrgSnapshot) ([]*OrgNode, map[string]*OrgNode, error) {
	if snapshot == nil {
		return []*OrgNode{}, map[string]*OrgNode{}, nil
	}

	personal := make(map[string]decimal.Decimal, len(snapshot.Users))
	for _, investment := range snapshot.Investments {
		wallet := strings.ToLower(strings.TrimSpace(investment.UserWallet))
		if wallet == "" {
			continue
		}
		personal[wallet] = personal[wallet].Add(investment.Amount.Decimal)
	}

	index := make(map[string]*OrgNode, len(snapshot.Users))
	order := make([]string, 0, len(snapshot.Users))
	for _, user := range snapshot.Users {
		wallet := strings.ToLower(strings.TrimSpace(user.WalletAddress))
		if wallet == "" {
			continue
		}
		if _, exists := index[wallet]; exists {
			continue
		}
		index[wallet] = &OrgNode{
			WalletAddress:  wallet,
			ReferralCode:   user.ReferralCode,
			ReferrerWallet: strings.ToLower(strings.TrimSpace(user.ReferrerWallet)),
			PersonalSales:  models.NewMoneyFromDecimal(personal[wallet]),
			RegisteredAt:   user.RegisteredAt,
		}
		order = append(order, wallet)
	}

	roots := make([]*OrgNode, 0)
	for _, wallet := range order {
		node := index[wallet]
		parent, ok := index[node.ReferrerWallet]
		if node.ReferrerWallet == "" || !ok || parent == node {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	visited := make(map[string]struct{}, len(index))
	for _, root := range roots {
		if err := rollupTeamSales(root, visited); err != nil {
			return nil, nil, err
		}
	}
	// 不可达节点意味着推荐链成环
	if len(visited) != len(index) {
		return nil, nil, ErrReferralCycle
	}

	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].TeamSales.Decimal.GreaterThan(roots[j].TeamSales.Decimal)
	})
	return roots, index, nil
}

type orgStackFrame struct {
	node       *OrgNode
	childIndex int
}

// rollupTeamSales 迭代后序遍历：团队业绩 = 个人业绩 + 所有子树团队业绩
func rollupTeamSales(root *OrgNode, visited map[string]struct{}) error {
	if root == nil {
		return nil
	}
	if _, seen := visited[root.WalletAddress]; seen {
		return ErrReferralCycle
	}
	visited[root.WalletAddress] = struct{}{}
	root.Level = 0

	stack := []orgStackFrame{{node: root}}
	for len(stack) > 0 {
		frame := &stack[len(stack)-1]
		if frame.childIndex < len(frame.node.Children) {
			child := frame.node.Children[frame.childIndex]
			frame.childIndex++
			if _, seen := visited[child.WalletAddress]; seen {
				return ErrReferralCycle
			}
			visited[child.WalletAddress] = struct{}{}
			child.Level = frame.node.Level + 1
			stack = append(stack, orgStackFrame{node: child})
			continue
		}

		total := frame.node.PersonalSales.Decimal
		for _, child := range frame.node.Children {
			total = total.Add(child.TeamSales.Decimal)
		}
		frame.node.TeamSales = models.NewMoneyFromDecimal(total)
		stack = stack[:len(stack)-1]
	}
	return nil
}

// ProjectTree 将森林投影为前端树形图结构
func ProjectTree(forest []*OrgNode) []*OrgTreeNode {
	result := make([]*OrgTreeNode, 0, len(forest))
	for _, node := range forest {
		result = append(result, projectTreeNode(node))
	}
	return result
}

func projectTreeNode(node *OrgNode) *OrgTreeNode {
	if node == nil {
		return nil
	}
	nodeType := "branch"
	if len(node.Children) == 0 {
		nodeType = "leaf"
	}
	tree := &OrgTreeNode{
		Name: node.WalletAddress,
		Attributes: map[string]string{
			"referral_code":   node.ReferralCode,
			"referrer_wallet": node.ReferrerWallet,
			"level":           strconv.Itoa(node.Level),
			"personal_sales":  node.PersonalSales.String(),
			"team_sales":      node.TeamSales.String(),
			"directs_count":   strconv.Itoa(len(node.Children)),
			"registered_at":   formatOrgTime(node.RegisteredAt),
			"node_type":       nodeType,
		},
	}
	for _, child := range node.Children {
		tree.Children = append(tree.Children, projectTreeNode(child))
	}
	return tree
}

// ExportCSV 将排序后的森林按先序导出为 CSV
func ExportCSV(forest []*OrgNode) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{
		"Wallet Address",
		"Referral Code",
		"Referrer Wallet",
		"Level",
		"Personal Sales (USDT)",
		"Team Sales (USDT)",
		"Directs Count",
		"Registered At",
	}
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	var walk func(node *OrgNode) error
	walk = func(node *OrgNode) error {
		if node == nil {
			return nil
		}
		row := []string{
			node.WalletAddress,
			node.ReferralCode,
			node.ReferrerWallet,
			strconv.Itoa(node.Level),
			node.PersonalSales.String(),
			node.TeamSales.String(),
			strconv.Itoa(len(node.Children)),
			formatOrgTime(node.RegisteredAt),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
		for _, child := range node.Children {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range forest {
		if err := walk(root); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportCSVNow 同步构建并导出 CSV
func (s *OrganizationService) ExportCSVNow(investedFrom, investedTo *time.Time) ([]byte, error) {
	forest, err := s.BuildForest(investedFrom, investedTo)
	if err != nil {
		return nil, err
	}
	return ExportCSV(forest)
}

// RequestCSVExport 发起异步 CSV 导出，返回取件令牌。
// 队列未启用时退化为同步导出：结果就地写入缓存，令牌立即可取。
func (s *OrganizationService) RequestCSVExport(ctx context.Context, investedFrom, investedTo *time.Time) (string, error) {
	token := uuid.NewString()
	if !s.queueClient.Enabled() {
		data, err := s.ExportCSVNow(investedFrom, investedTo)
		if err != nil {
			return "", err
		}
		if err := s.StoreCSVExport(ctx, token, data); err != nil {
			return "", err
		}
		return token, nil
	}
	payload := queue.OrgExportCSVPayload{Token: token}
	if investedFrom != nil {
		payload.StartAt = investedFrom.Unix()
	}
	if investedTo != nil {
		payload.EndAt = investedTo.Unix()
	}
	if err := s.queueClient.EnqueueOrgExportCSV(payload); err != nil {
		return "", err
	}
	return token, nil
}

// StoreCSVExport 写入导出结果缓存（由 worker 或同步降级路径调用）。
// Redis 不可用时落进程内缓存：同步降级路径与取件在同一进程。
func (s *OrganizationService) StoreCSVExport(ctx context.Context, token string, data []byte) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if cache.Enabled() {
		return cache.SetBytes(ctx, orgExportCacheKeyPrefix+token, data, s.exportCacheTTL())
	}
	s.exportMu.Lock()
	defer s.exportMu.Unlock()
	if s.localExports == nil {
		s.localExports = make(map[string]localExportEntry)
	}
	s.localExports[token] = localExportEntry{
		data:      data,
		expiresAt: time.Now().Add(s.exportCacheTTL()),
	}
	return nil
}

// GetCSVExport 按令牌取导出结果，未就绪返回 ErrExportNotReady
func (s *OrganizationService) GetCSVExport(ctx context.Context, token string) ([]byte, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}
	data, hit, err := cache.GetBytes(ctx, orgExportCacheKeyPrefix+token)
	if err != nil {
		return nil, err
	}
	if hit {
		return data, nil
	}

	s.exportMu.Lock()
	defer s.exportMu.Unlock()
	entry, ok := s.localExports[token]
	if !ok {
		return nil, ErrExportNotReady
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.localExports, token)
		return nil, ErrExportNotReady
	}
	return entry.data, nil
}

func (s *OrganizationService) exportCacheTTL() time.Duration {
	seconds := 600
	if s.cfg != nil && s.cfg.Referral.ExportCacheTTLSeconds > 0 {
		seconds = s.cfg.Referral.ExportCacheTTLSeconds
	}
	return time.Duration(seconds) * time.Second
}

func formatOrgTime(at time.Time) string {
	if at.IsZero() {
		return ""
	}
	return at.Format("2006-01-02 15:04:05")
}

// BuildExportFilename 生成导出文件名
func BuildExportFilename(at time.Time) string {
	return fmt.Sprintf("organization_%s.csv", at.Format("20060102_150405"))
}
