package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models/reports"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/workflow"
	"gorm.io/gorm"
)

// Exercises the transactional invariants against a real MySQL: guarded
// transitions resolve concurrent writers with one winner, the one-active-
// request-per-crate rule holds at the transaction boundary, barcode
// sequences never repeat, and the workflow round trips (send-back and
// resubmit, rejection, full-withdrawal snapshot) leave the trail they
// promise.
func TestRequestLifecycleInvariants(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "cratearchive_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUsernameInContext(ctx, "test")

	db := config.GetDB()

	unit := models.Unit{UnitCode: "GOA", UnitName: "Goa Plant"}
	if err := db.Create(&unit).Error; err != nil {
		t.Fatalf("create unit: %v", err)
	}
	dept := models.Department{UnitId: unit.ID, DepartmentName: "QC"}
	if err := db.Create(&dept).Error; err != nil {
		t.Fatalf("create department: %v", err)
	}

	req := models.Request{
		RequestType:   models.RequestTypeStorage,
		Status:        models.RequestStatusPending,
		RequestedById: 1,
		UnitId:        unit.ID,
		DepartmentId:  dept.ID,
	}
	if err := db.Create(&req).Error; err != nil {
		t.Fatalf("create request: %v", err)
	}

	t.Run("guarded transition has exactly one winner", func(t *testing.T) {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return models.TransitionRequestTx(tx, req.ID, models.RequestStatusPending, models.RequestStatusApproved, nil)
		})
		if err != nil {
			t.Fatalf("first transition: %v", err)
		}
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return models.TransitionRequestTx(tx, req.ID, models.RequestStatusPending, models.RequestStatusApproved, nil)
		})
		if !errors.Is(err, models.ErrStaleState) {
			t.Fatalf("expected ErrStaleState for the losing writer, got %v", err)
		}
	})

	t.Run("barcode sequence is monotonic per scope", func(t *testing.T) {
		for want := 1; want <= 3; want++ {
			var got int
			err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				var err error
				got, err = models.NextBarcodeSeqTx(tx, unit.ID, dept.ID, nil, 2026)
				return err
			})
			if err != nil {
				t.Fatalf("NextBarcodeSeqTx: %v", err)
			}
			if got != want {
				t.Fatalf("sequence %d, want %d", got, want)
			}
		}
		// A different year starts its own sequence.
		var got int
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			got, err = models.NextBarcodeSeqTx(tx, unit.ID, dept.ID, nil, 2027)
			return err
		})
		if err != nil || got != 1 {
			t.Fatalf("new scope: got %d, %v", got, err)
		}
	})

	t.Run("one non-terminal withdrawal per crate", func(t *testing.T) {
		crate := models.Crate{
			Barcode:      "GOA/QC/2026/00001",
			CreatedById:  1,
			Status:       models.CrateStatusActive,
			UnitId:       unit.ID,
			DepartmentId: dept.ID,
		}
		if err := db.Create(&crate).Error; err != nil {
			t.Fatalf("create crate: %v", err)
		}

		withdrawal := models.Request{
			RequestType:   models.RequestTypeWithdrawal,
			Status:        models.RequestStatusPending,
			RequestedById: 1,
			UnitId:        unit.ID,
			DepartmentId:  dept.ID,
			CrateId:       &crate.ID,
		}
		if err := db.Create(&withdrawal).Error; err != nil {
			t.Fatalf("create withdrawal: %v", err)
		}

		var active bool
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			active, err = models.HasActiveRequestForCrateTx(tx, crate.ID)
			return err
		})
		if err != nil {
			t.Fatalf("HasActiveRequestForCrateTx: %v", err)
		}
		if !active {
			t.Fatal("expected active request while withdrawal is Pending")
		}

		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return models.TransitionRequestTx(tx, withdrawal.ID, models.RequestStatusPending, models.RequestStatusRejected, nil)
		})
		if err != nil {
			t.Fatalf("reject withdrawal: %v", err)
		}

		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			active, err = models.HasActiveRequestForCrateTx(tx, crate.ID)
			return err
		})
		if err != nil {
			t.Fatalf("HasActiveRequestForCrateTx after reject: %v", err)
		}
		if active {
			t.Fatal("rejected withdrawal should not count as active")
		}
	})

	t.Run("destroyed crate rejects further transitions", func(t *testing.T) {
		crate := models.Crate{
			Barcode:      "GOA/QC/2026/00002",
			CreatedById:  1,
			Status:       models.CrateStatusActive,
			UnitId:       unit.ID,
			DepartmentId: dept.ID,
		}
		if err := db.Create(&crate).Error; err != nil {
			t.Fatalf("create crate: %v", err)
		}
		if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return models.MarkDestroyedTx(tx, crate.ID)
		}); err != nil {
			t.Fatalf("MarkDestroyedTx: %v", err)
		}
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return models.MarkWithdrawnTx(tx, crate.ID)
		})
		if !errors.Is(err, models.ErrCrateDestroyed) {
			t.Fatalf("expected ErrCrateDestroyed, got %v", err)
		}
	})

	// Workflow-level fixtures: one role carrying both the requester and the
	// approver privilege, and two active users in the unit. The owner-cannot-
	// approve rule is keyed on the user id, so sharing a role is fine.
	privCreate := models.Privilege{Codename: models.PrivilegeCreateRequest, Name: "Create requests"}
	privApprove := models.Privilege{Codename: models.PrivilegeApproveRequest, Name: "Approve requests"}
	for _, p := range []*models.Privilege{&privCreate, &privApprove} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("create privilege %s: %v", p.Codename, err)
		}
	}
	role := models.Role{RoleName: "Records Officer", Privileges: []*models.Privilege{&privCreate, &privApprove}}
	if err := db.Create(&role).Error; err != nil {
		t.Fatalf("create role: %v", err)
	}

	const password = "Crate#2026pw"
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	owner := models.User{
		Username: "owner", FullName: "Request Owner", Password: string(hash),
		Status: models.UserStatusActive, RoleId: role.ID, Units: []*models.Unit{&unit},
	}
	approver := models.User{
		Username: "approver", FullName: "Request Approver", Password: string(hash),
		Status: models.UserStatusActive, RoleId: role.ID, Units: []*models.Unit{&unit},
	}
	for _, u := range []*models.User{&owner, &approver} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("create user %s: %v", u.Username, err)
		}
	}
	ownerCtx := utils.SetUsernameInContext(utils.SetUserIdInContext(context.Background(), owner.ID), owner.Username)
	approverCtx := utils.SetUsernameInContext(utils.SetUserIdInContext(context.Background(), approver.ID), approver.Username)

	withdrawCrate := models.Crate{
		Barcode:      "GOA/QC/2026/00003",
		CreatedById:  owner.ID,
		Status:       models.CrateStatusActive,
		UnitId:       unit.ID,
		DepartmentId: dept.ID,
	}
	if err := db.Create(&withdrawCrate).Error; err != nil {
		t.Fatalf("create crate: %v", err)
	}
	var crateDocIds []int
	for i := 1; i <= 3; i++ {
		doc := models.Document{
			DocumentName:   fmt.Sprintf("Batch Record %d", i),
			DocumentNumber: fmt.Sprintf("BMR-2026-%03d", i),
		}
		if err := db.Create(&doc).Error; err != nil {
			t.Fatalf("create document: %v", err)
		}
		cd := models.CrateDocument{CrateId: withdrawCrate.ID, DocumentId: doc.ID}
		if err := db.Create(&cd).Error; err != nil {
			t.Fatalf("create crate document: %v", err)
		}
		crateDocIds = append(crateDocIds, doc.ID)
	}

	var winnerId int
	t.Run("concurrent withdrawals on one crate admit exactly one", func(t *testing.T) {
		returnDate := time.Now().AddDate(0, 1, 0)
		input := &workflow.NewWithdrawalRequest{
			CrateId:            withdrawCrate.ID,
			Purpose:            "regulatory audit retrieval",
			ExpectedReturnDate: &returnDate,
			FullWithdrawal:     true,
		}
		type result struct {
			req *models.Request
			err error
		}
		results := make(chan result, 2)
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req, err := workflow.SubmitWithdrawalRequest(ownerCtx, input)
				results <- result{req, err}
			}()
		}
		wg.Wait()
		close(results)

		var won, duplicate int
		for r := range results {
			switch {
			case r.err == nil:
				won++
				winnerId = r.req.ID
			case errors.Is(r.err, models.ErrDuplicateActiveRequest):
				duplicate++
			default:
				t.Fatalf("unexpected submission error: %v", r.err)
			}
		}
		if won != 1 || duplicate != 1 {
			t.Fatalf("got %d winners and %d duplicates, want exactly one of each", won, duplicate)
		}
	})

	t.Run("full withdrawal approval snapshots the crate documents", func(t *testing.T) {
		if winnerId == 0 {
			t.Fatal("no pending withdrawal to approve")
		}
		approved, err := workflow.ApproveRequest(approverCtx, winnerId, password)
		if err != nil {
			t.Fatalf("ApproveRequest: %v", err)
		}
		if approved.Status != models.RequestStatusApproved {
			t.Fatalf("status %s, want Approved", approved.Status)
		}
		got := map[int]bool{}
		for _, rd := range approved.Documents {
			got[rd.DocumentId] = true
		}
		if len(got) != len(crateDocIds) {
			t.Fatalf("snapshot holds %d documents, want %d", len(got), len(crateDocIds))
		}
		for _, id := range crateDocIds {
			if !got[id] {
				t.Fatalf("document %d missing from the withdrawal snapshot", id)
			}
		}
	})

	t.Run("send-back round trip keeps the id and the reason trail", func(t *testing.T) {
		destructionDate := time.Date(2030, time.June, 1, 0, 0, 0, 0, time.UTC)
		submitted, err := workflow.SubmitStorageRequest(ownerCtx, &workflow.NewStorageRequest{
			UnitId:          unit.ID,
			DepartmentId:    dept.ID,
			DestructionDate: &destructionDate,
			Purpose:         "stability study records",
			Documents:       []*models.NewDocument{{DocumentName: "Stability Protocol", DocumentNumber: "STB-2026-001"}},
		})
		if err != nil {
			t.Fatalf("SubmitStorageRequest: %v", err)
		}

		const reason = "destruction schedule conflicts with the retention register"
		sentBack, err := workflow.SendBackRequest(approverCtx, submitted.ID, models.SendBackTypeChangeRequest, reason, password)
		if err != nil {
			t.Fatalf("SendBackRequest: %v", err)
		}
		if sentBack.Status != models.RequestStatusSentBack {
			t.Fatalf("status %s, want Sent Back", sentBack.Status)
		}

		retained := true
		if _, err := workflow.UpdateRequest(ownerCtx, submitted.ID, &workflow.UpdateRequestInput{
			ToBeRetained: &retained,
			Resubmit:     true,
		}); err != nil {
			t.Fatalf("UpdateRequest: %v", err)
		}

		approved, err := workflow.ApproveRequest(approverCtx, submitted.ID, password)
		if err != nil {
			t.Fatalf("ApproveRequest after resubmission: %v", err)
		}
		if approved.ID != submitted.ID {
			t.Fatalf("request id changed across the round trip: %d -> %d", submitted.ID, approved.ID)
		}
		if len(approved.SendBacks) != 1 || approved.SendBacks[0].Reason != reason {
			t.Fatalf("send-back trail %+v, want one entry carrying the original reason", approved.SendBacks)
		}
		if approved.CrateId == nil {
			t.Fatal("approved storage request has no crate")
		}
		var crate models.Crate
		if err := db.First(&crate, *approved.CrateId).Error; err != nil {
			t.Fatalf("load crate: %v", err)
		}
		if !crate.ToBeRetained || crate.DestructionDate != nil {
			t.Fatalf("crate retained=%v destruction=%v, want retained with no destruction date",
				crate.ToBeRetained, crate.DestructionDate)
		}
	})

	t.Run("rejection records its reason on the request", func(t *testing.T) {
		crate := models.Crate{
			Barcode:      "GOA/QC/2026/00004",
			CreatedById:  owner.ID,
			Status:       models.CrateStatusActive,
			UnitId:       unit.ID,
			DepartmentId: dept.ID,
		}
		if err := db.Create(&crate).Error; err != nil {
			t.Fatalf("create crate: %v", err)
		}
		returnDate := time.Now().AddDate(0, 1, 0)
		submitted, err := workflow.SubmitWithdrawalRequest(ownerCtx, &workflow.NewWithdrawalRequest{
			CrateId:            crate.ID,
			Purpose:            "duplicate retrieval",
			ExpectedReturnDate: &returnDate,
			FullWithdrawal:     true,
		})
		if err != nil {
			t.Fatalf("SubmitWithdrawalRequest: %v", err)
		}

		const reason = "duplicate of an earlier retrieval"
		rejected, err := workflow.RejectRequest(approverCtx, submitted.ID, reason, password)
		if err != nil {
			t.Fatalf("RejectRequest: %v", err)
		}
		if rejected.Status != models.RequestStatusRejected {
			t.Fatalf("status %s, want Rejected", rejected.Status)
		}
		if len(rejected.SendBacks) != 1 ||
			rejected.SendBacks[0].Type != models.SendBackTypeRejection ||
			rejected.SendBacks[0].Reason != reason {
			t.Fatalf("send-back trail %+v, want one Rejection entry carrying the reason", rejected.SendBacks)
		}
	})

	t.Run("summary report scopes crate counts to the unit", func(t *testing.T) {
		other := models.Unit{UnitCode: "IND", UnitName: "Indore Plant"}
		if err := db.Create(&other).Error; err != nil {
			t.Fatalf("create unit: %v", err)
		}
		crate := models.Crate{
			Barcode:      "IND/QC/2026/00001",
			CreatedById:  owner.ID,
			Status:       models.CrateStatusActive,
			UnitId:       other.ID,
			DepartmentId: dept.ID,
		}
		if err := db.Create(&crate).Error; err != nil {
			t.Fatalf("create crate: %v", err)
		}

		scoped, err := reports.GetSummaryReport(ctx, &unit.ID)
		if err != nil {
			t.Fatalf("GetSummaryReport scoped: %v", err)
		}
		if len(scoped.CratesByUnit) == 0 {
			t.Fatal("scoped report has no per-unit crate counts")
		}
		for _, row := range scoped.CratesByUnit {
			if row.UnitId != unit.ID {
				t.Fatalf("scoped report leaked unit %d (%s)", row.UnitId, row.UnitName)
			}
		}

		all, err := reports.GetSummaryReport(ctx, nil)
		if err != nil {
			t.Fatalf("GetSummaryReport unscoped: %v", err)
		}
		seen := map[int]bool{}
		for _, row := range all.CratesByUnit {
			seen[row.UnitId] = true
		}
		if !seen[unit.ID] || !seen[other.ID] {
			t.Fatalf("unscoped report covers units %v, want both %d and %d", seen, unit.ID, other.ID)
		}
	})
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("cratearchive-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("cratearchive-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=cratearchive_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
