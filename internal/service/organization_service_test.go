package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stakehub-next/internal/config"
	"github.com/stakehub-next/internal/constants"
	"github.com/stakehub-next/internal/models"
	"github.com/stakehub-next/internal/queue"
	"github.com/stakehub-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupOrganizationServiceTest(t *testing.T) (*OrganizationService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:org_svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Investment{}); err != nil {
		t.Fatalf("migrate tables failed: %v", err)
	}

	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("create queue client failed: %v", err)
	}
	svc := NewOrganizationService(&config.Config{}, repository.NewOrganizationRepository(db), queueClient)
	return svc, db
}

func createOrgUser(t *testing.T, db *gorm.DB, wallet, code, referrer string, registeredAt time.Time) {
	t.Helper()
	if err := db.Create(&models.User{
		WalletAddress:  wallet,
		ReferralCode:   code,
		ReferrerWallet: referrer,
		Status:         constants.UserStatusActive,
		RegisteredAt:   registeredAt,
	}).Error; err != nil {
		t.Fatalf("create user %s failed: %v", wallet, err)
	}
}

var orgTxSeq int

func createOrgInvestment(t *testing.T, db *gorm.DB, wallet, amount, status string, investedAt time.Time) {
	t.Helper()
	orgTxSeq++
	money, err := models.NewMoneyFromString(amount)
	if err != nil {
		t.Fatalf("parse amount %s failed: %v", amount, err)
	}
	if err := db.Create(&models.Investment{
		UserWallet: wallet,
		ProjectID:  1,
		Amount:     money,
		TxHash:     fmt.Sprintf("0x%064d", orgTxSeq),
		Status:     status,
		InvestedAt: investedAt,
	}).Error; err != nil {
		t.Fatalf("create investment for %s failed: %v", wallet, err)
	}
}

func seedOrgChain(t *testing.T, db *gorm.DB) (string, string, string) {
	t.Helper()
	walletA := testWalletAddr(1)
	walletB := testWalletAddr(2)
	walletC := testWalletAddr(3)
	base := time.Now().Add(-24 * time.Hour)
	createOrgUser(t, db, walletA, "CODEAAAA", "", base)
	createOrgUser(t, db, walletB, "CODEBBBB", walletA, base.Add(time.Minute))
	createOrgUser(t, db, walletC, "CODECCCC", walletB, base.Add(2*time.Minute))
	createOrgInvestment(t, db, walletA, "100", constants.InvestmentStatusConfirmed, base.Add(time.Hour))
	createOrgInvestment(t, db, walletB, "50", constants.InvestmentStatusConfirmed, base.Add(time.Hour))
	createOrgInvestment(t, db, walletC, "30", constants.InvestmentStatusConfirmed, base.Add(time.Hour))
	return walletA, walletB, walletC
}

func TestBuildForestRollupChain(t *testing.T) {
	svc, db := setupOrganizationServiceTest(t)
	walletA, walletB, walletC := seedOrgChain(t, db)

	forest, err := svc.BuildForest(nil, nil)
	if err != nil {
		t.Fatalf("build forest failed: %v", err)
	}
	if len(forest) != 1 {
		t.Fatalf("forest roots want 1 got %d", len(forest))
	}

	root := forest[0]
	if root.WalletAddress != walletA || root.Level != 0 {
		t.Fatalf("root want %s level 0, got %s level %d", walletA, root.WalletAddress, root.Level)
	}
	if root.TeamSales.String() != "180.00" || root.PersonalSales.String() != "100.00" {
		t.Fatalf("root sales want 180.00/100.00 got %s/%s", root.TeamSales, root.PersonalSales)
	}
	if len(root.Children) != 1 {
		t.Fatalf("root directs want 1 got %d", len(root.Children))
	}

	mid := root.Children[0]
	if mid.WalletAddress != walletB || mid.Level != 1 {
		t.Fatalf("mid want %s level 1, got %s level %d", walletB, mid.WalletAddress, mid.Level)
	}
	if mid.TeamSales.String() != "80.00" {
		t.Fatalf("mid team sales want 80.00 got %s", mid.TeamSales)
	}

	leaf := mid.Children[0]
	if leaf.WalletAddress != walletC || leaf.Level != 2 {
		t.Fatalf("leaf want %s level 2, got %s level %d", walletC, leaf.WalletAddress, leaf.Level)
	}
	if leaf.TeamSales.String() != "30.00" || len(leaf.Children) != 0 {
		t.Fatalf("leaf team sales want 30.00 without children, got %s/%d", leaf.TeamSales, len(leaf.Children))
	}
}

func TestBuildForestConservation(t *testing.T) {
	svc, db := setupOrganizationServiceTest(t)
	base := time.Now().Add(-24 * time.Hour)
	root1 := testWalletAddr(1)
	root2 := testWalletAddr(2)
	childA := testWalletAddr(3)
	childB := testWalletAddr(4)
	createOrgUser(t, db, root1, "CODEAAAA", "", base)
	createOrgUser(t, db, root2, "CODEBBBB", "", base)
	createOrgUser(t, db, childA, "CODECCCC", root1, base)
	createOrgUser(t, db, childB, "CODEDDDD", root1, base)
	createOrgInvestment(t, db, root1, "10", constants.InvestmentStatusConfirmed, base)
	createOrgInvestment(t, db, root2, "20", constants.InvestmentStatusConfirmed, base)
	createOrgInvestment(t, db, childA, "30", constants.InvestmentStatusConfirmed, base)
	createOrgInvestment(t, db, childB, "40.50", constants.InvestmentStatusConfirmed, base)

	forest, err := svc.BuildForest(nil, nil)
	if err != nil {
		t.Fatalf("build forest failed: %v", err)
	}
	if len(forest) != 2 {
		t.Fatalf("forest roots want 2 got %d", len(forest))
	}

	// 根节点团队业绩之和等于全部个人业绩之和
	total := decimal.Zero
	for _, root := range forest {
		total = total.Add(root.TeamSales.Decimal)
	}
	if total.StringFixed(2) != "100.50" {
		t.Fatalf("conservation broken: root team sum want 100.50 got %s", total.StringFixed(2))
	}

	// 根按团队业绩降序
	if forest[0].TeamSales.Decimal.LessThan(forest[1].TeamSales.Decimal) {
		t.Fatalf("roots must be sorted by team sales desc")
	}
}

func TestBuildForestPendingExcluded(t *testing.T) {
	svc, db := setupOrganizationServiceTest(t)
	base := time.Now().Add(-24 * time.Hour)
	wallet := testWalletAddr(1)
	createOrgUser(t, db, wallet, "CODEAAAA", "", base)
	createOrgInvestment(t, db, wallet, "100", constants.InvestmentStatusConfirmed, base)
	createOrgInvestment(t, db, wallet, "999", constants.InvestmentStatusPending, base)
	createOrgInvestment(t, db, wallet, "888", constants.InvestmentStatusFailed, base)

	forest, err := svc.BuildForest(nil, nil)
	if err != nil {
		t.Fatalf("build forest failed: %v", err)
	}
	if forest[0].PersonalSales.String() != "100.00" {
		t.Fatalf("only confirmed investments count, got %s", forest[0].PersonalSales)
	}
}

func TestBuildForestDanglingReferrerBecomesRoot(t *testing.T) {
	svc, db := setupOrganizationServiceTest(t)
	base := time.Now().Add(-24 * time.Hour)
	orphan := testWalletAddr(1)
	// 上级钱包不存在于用户表
	createOrgUser(t, db, orphan, "CODEAAAA", testWalletAddr(77), base)
	createOrgInvestment(t, db, orphan, "15", constants.InvestmentStatusConfirmed, base)

	forest, err := svc.BuildForest(nil, nil)
	if err != nil {
		t.Fatalf("build forest failed: %v", err)
	}
	if len(forest) != 1 {
		t.Fatalf("orphan must surface as root, got %d roots", len(forest))
	}
	if forest[0].WalletAddress != orphan || forest[0].Level != 0 {
		t.Fatalf("orphan root want %s level 0, got %s level %d", orphan, forest[0].WalletAddress, forest[0].Level)
	}
}

func TestBuildForestDateWindowFiltersSalesNotMembers(t *testing.T) {
	svc, db := setupOrganizationServiceTest(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	walletA := testWalletAddr(1)
	walletB := testWalletAddr(2)
	createOrgUser(t, db, walletA, "CODEAAAA", "", base)
	createOrgUser(t, db, walletB, "CODEBBBB", walletA, base)
	createOrgInvestment(t, db, walletA, "100", constants.InvestmentStatusConfirmed, base.AddDate(0, 0, -10))
	createOrgInvestment(t, db, walletB, "50", constants.InvestmentStatusConfirmed, base)

	from := base.AddDate(0, 0, -1)
	to := base.AddDate(0, 0, 1)
	forest, err := svc.BuildForest(&from, &to)
	if err != nil {
		t.Fatalf("build forest failed: %v", err)
	}

	root := forest[0]
	if root.PersonalSales.String() != "0.00" {
		t.Fatalf("out-of-window sales must be excluded, got %s", root.PersonalSales)
	}
	if root.TeamSales.String() != "50.00" {
		t.Fatalf("team sales want 50.00 got %s", root.TeamSales)
	}
	// 成员不受窗口过滤
	if len(root.Children) != 1 {
		t.Fatalf("member without in-window sales must stay in tree")
	}
}

func TestBuildForestDetectsCycle(t *testing.T) {
	svc, db := setupOrganizationServiceTest(t)
	base := time.Now()
	walletA := testWalletAddr(1)
	walletB := testWalletAddr(2)
	// 互为上级，绕过业务校验直接写库
	createOrgUser(t, db, walletA, "CODEAAAA", walletB, base)
	createOrgUser(t, db, walletB, "CODEBBBB", walletA, base)

	if _, err := svc.BuildForest(nil, nil); !errors.Is(err, ErrReferralCycle) {
		t.Fatalf("want ErrReferralCycle, got %v", err)
	}
}

func TestBuildTeamSubtreeKeepsGlobalLevel(t *testing.T) {
	svc, db := setupOrganizationServiceTest(t)
	_, walletB, walletC := seedOrgChain(t, db)

	node, err := svc.BuildTeam(walletB, nil, nil)
	if err != nil {
		t.Fatalf("build team failed: %v", err)
	}
	if node.WalletAddress != walletB || node.Level != 1 {
		t.Fatalf("subtree root want %s level 1, got %s level %d", walletB, node.WalletAddress, node.Level)
	}
	if node.TeamSales.String() != "80.00" {
		t.Fatalf("subtree team sales want 80.00 got %s", node.TeamSales)
	}
	if len(node.Children) != 1 || node.Children[0].WalletAddress != walletC {
		t.Fatalf("subtree must keep descendants")
	}

	if _, err := svc.BuildTeam(testWalletAddr(42), nil, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown wallet want ErrNotFound, got %v", err)
	}
}

func TestExportCSVPreOrder(t *testing.T) {
	svc, db := setupOrganizationServiceTest(t)
	walletA, walletB, walletC := seedOrgChain(t, db)

	forest, err := svc.BuildForest(nil, nil)
	if err != nil {
		t.Fatalf("build forest failed: %v", err)
	}
	data, err := ExportCSV(forest)
	if err != nil {
		t.Fatalf("export csv failed: %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("csv rows want 4 got %d", len(rows))
	}
	if rows[0][0] != "Wallet Address" || rows[0][5] != "Team Sales (USDT)" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	// 先序：A、B、C
	if rows[1][0] != walletA || rows[2][0] != walletB || rows[3][0] != walletC {
		t.Fatalf("rows must follow pre-order, got %v %v %v", rows[1][0], rows[2][0], rows[3][0])
	}
	if rows[1][5] != "180.00" || rows[1][3] != "0" {
		t.Fatalf("root row want team 180.00 level 0, got %v", rows[1])
	}
	if rows[3][3] != "2" {
		t.Fatalf("leaf level want 2 got %v", rows[3][3])
	}
}

func TestExportCSVQuotesSpecialCharacters(t *testing.T) {
	svc, db := setupOrganizationServiceTest(t)
	base := time.Now().Add(-24 * time.Hour)
	wallet := testWalletAddr(1)
	code := `REF,"X1`
	createOrgUser(t, db, wallet, code, "", base)
	createOrgInvestment(t, db, wallet, "10", constants.InvestmentStatusConfirmed, base)

	forest, err := svc.BuildForest(nil, nil)
	if err != nil {
		t.Fatalf("build forest failed: %v", err)
	}
	data, err := ExportCSV(forest)
	if err != nil {
		t.Fatalf("export csv failed: %v", err)
	}

	// 含逗号与双引号的字段必须整体加引号、内部引号翻倍
	if !bytes.Contains(data, []byte(`"REF,""X1"`)) {
		t.Fatalf("raw csv must quote special characters, got %s", data)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("csv rows want 2 got %d", len(rows))
	}
	if rows[1][1] != code {
		t.Fatalf("referral code must round-trip, want %q got %q", code, rows[1][1])
	}
}

func TestRequestCSVExportQueueDisabledSyncFallback(t *testing.T) {
	svc, db := setupOrganizationServiceTest(t)
	walletA, _, _ := seedOrgChain(t, db)

	// 测试夹具的队列客户端处于禁用状态，令牌必须立即可取
	token, err := svc.RequestCSVExport(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("request export failed: %v", err)
	}
	if token == "" {
		t.Fatalf("token must not be empty")
	}

	data, err := svc.GetCSVExport(context.Background(), token)
	if err != nil {
		t.Fatalf("export must be redeemable right away: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("csv rows want 4 got %d", len(rows))
	}
	if rows[1][0] != walletA {
		t.Fatalf("first data row want %s got %s", walletA, rows[1][0])
	}

	if _, err := svc.GetCSVExport(context.Background(), "no-such-token"); !errors.Is(err, ErrExportNotReady) {
		t.Fatalf("unknown token want ErrExportNotReady, got %v", err)
	}
}

func TestProjectTreeAttributes(t *testing.T) {
	svc, db := setupOrganizationServiceTest(t)
	walletA, _, walletC := seedOrgChain(t, db)

	forest, err := svc.BuildForest(nil, nil)
	if err != nil {
		t.Fatalf("build forest failed: %v", err)
	}
	tree := ProjectTree(forest)
	if len(tree) != 1 {
		t.Fatalf("tree roots want 1 got %d", len(tree))
	}

	root := tree[0]
	if root.Name != walletA {
		t.Fatalf("root name want %s got %s", walletA, root.Name)
	}
	if root.Attributes["team_sales"] != "180.00" || root.Attributes["node_type"] != "branch" {
		t.Fatalf("unexpected root attributes: %v", root.Attributes)
	}

	leaf := root.Children[0].Children[0]
	if leaf.Name != walletC || leaf.Attributes["node_type"] != "leaf" {
		t.Fatalf("unexpected leaf projection: %s %v", leaf.Name, leaf.Attributes)
	}
	if leaf.Attributes["level"] != "2" || leaf.Attributes["directs_count"] != "0" {
		t.Fatalf("unexpected leaf attributes: %v", leaf.Attributes)
	}
}

func TestBuildExportFilename(t *testing.T) {
	at := time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC)
	if got := BuildExportFilename(at); got != "organization_20260305_093000.csv" {
		t.Fatalf("unexpected filename %s", got)
	}
}
