package services

import (
	"errors"
	"testing"
	"time"

	"attendance-bot-server/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// a second pool connection would see an empty in-memory database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Employee{}, &models.Invitation{}, &models.AttendanceRecord{}, &models.AdminUser{}, &models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustCreate(t *testing.T, svc *InvitationService, firstName string) *CreatedInvitation {
	t.Helper()
	created, err := svc.Create(InvitationPayload{FirstName: firstName}, "1", 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return created
}

func withinSeconds(a, b time.Time, seconds float64) bool {
	d := a.Sub(b).Seconds()
	if d < 0 {
		d = -d
	}
	return d <= seconds
}

func TestCreateDefaults(t *testing.T) {
	svc := NewInvitationService(newTestDB(t))

	created, err := svc.Create(InvitationPayload{FirstName: "Ahmed", PhoneNumber: "01012345678"}, "42", 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	inv := created.Invitation
	if inv.Status != models.InvitationPending {
		t.Fatalf("expected pending, got %s", inv.Status)
	}
	if inv.Token == nil || len(*inv.Token) != 48 {
		t.Fatalf("expected 48-char token, got %v", inv.Token)
	}
	if !withinSeconds(inv.ExpiresAt, time.Now().AddDate(0, 0, 7), 5) {
		t.Fatalf("expected expiry ~now+7d, got %v", inv.ExpiresAt)
	}
	if inv.InvitedBy != "42" {
		t.Fatalf("expected invitedBy 42, got %s", inv.InvitedBy)
	}
	if inv.PhoneNumber != "201012345678" {
		t.Fatalf("expected normalized phone, got %s", inv.PhoneNumber)
	}
	if inv.EmployeeID != nil || inv.AcceptedAt != nil {
		t.Fatal("new invitation must not carry employee linkage")
	}
	wantLink := "https://t.me/attendance_bot?start=invite_" + *inv.Token
	if created.Link != wantLink {
		t.Fatalf("expected link %s, got %s", wantLink, created.Link)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewInvitationService(newTestDB(t))

	var validationErr *ValidationError
	if _, err := svc.Create(InvitationPayload{FirstName: "  "}, "1", 0); !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for missing firstName, got %v", err)
	}
	if _, err := svc.Create(InvitationPayload{FirstName: "Ahmed"}, "1", -3); !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for negative expiry, got %v", err)
	}
}

func TestCreateCustomExpiry(t *testing.T) {
	svc := NewInvitationService(newTestDB(t))

	created, err := svc.Create(InvitationPayload{FirstName: "Mona"}, "1", 14)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !withinSeconds(created.Invitation.ExpiresAt, time.Now().AddDate(0, 0, 14), 5) {
		t.Fatalf("expected expiry ~now+14d, got %v", created.Invitation.ExpiresAt)
	}
}

func TestResolveNotFound(t *testing.T) {
	svc := NewInvitationService(newTestDB(t))

	if _, err := svc.Resolve("deadbeef"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolvePending(t *testing.T) {
	svc := NewInvitationService(newTestDB(t))
	created := mustCreate(t, svc, "Ahmed")

	inv, err := svc.Resolve(*created.Invitation.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if inv.FirstName != "Ahmed" || inv.Status != models.InvitationPending {
		t.Fatalf("unexpected invitation: %+v", inv)
	}
}

func TestResolveLazyExpiration(t *testing.T) {
	db := newTestDB(t)
	svc := NewInvitationService(db)
	created := mustCreate(t, svc, "Ahmed")
	token := *created.Invitation.Token

	db.Model(created.Invitation).Update("expires_at", time.Now().Add(-time.Hour))

	var expiredErr *ExpiredError
	if _, err := svc.Resolve(token); !errors.As(err, &expiredErr) || !expiredErr.JustExpired {
		t.Fatalf("expected just-expired error, got %v", err)
	}

	var stored models.Invitation
	db.Where("token = ?", token).First(&stored)
	if stored.Status != models.InvitationExpired {
		t.Fatalf("expected stored status expired, got %s", stored.Status)
	}

	// repeated resolves report the already-expired state
	expiredErr = nil
	if _, err := svc.Resolve(token); !errors.As(err, &expiredErr) || expiredErr.JustExpired {
		t.Fatalf("expected already-expired error, got %v", err)
	}
}

func TestAcceptCreatesEmployee(t *testing.T) {
	db := newTestDB(t)
	svc := NewInvitationService(db)

	created, err := svc.Create(InvitationPayload{
		FirstName:  "Ahmed",
		LastName:   "Hassan",
		Department: "Engineering",
		Position:   "Developer",
		Email:      "Ahmed@Example.com",
	}, "1", 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	token := *created.Invitation.Token

	employee, err := svc.Accept(token, "tg-1001", AcceptOverrides{TelegramUsername: "ahmedh", PhoneNumber: "01098765432"})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if employee.FirstName != "Ahmed" || employee.LastName != "Hassan" || employee.Department != "Engineering" {
		t.Fatalf("payload not copied: %+v", employee)
	}
	if employee.Email != "ahmed@example.com" {
		t.Fatalf("expected lowercased email, got %s", employee.Email)
	}
	if employee.PhoneNumber != "201098765432" {
		t.Fatalf("expected overridden phone, got %s", employee.PhoneNumber)
	}
	if employee.TelegramUsername != "ahmedh" {
		t.Fatalf("expected username override, got %s", employee.TelegramUsername)
	}

	var stored models.Invitation
	db.Where("token = ?", token).First(&stored)
	if stored.Status != models.InvitationAccepted {
		t.Fatalf("expected accepted, got %s", stored.Status)
	}
	if stored.EmployeeID == nil || *stored.EmployeeID != employee.ID {
		t.Fatalf("employee linkage missing: %+v", stored)
	}
	if stored.AcceptedAt == nil {
		t.Fatal("acceptedAt not set")
	}
}

func TestAcceptTwiceReportsAlreadyAccepted(t *testing.T) {
	svc := NewInvitationService(newTestDB(t))
	created := mustCreate(t, svc, "Ahmed")
	token := *created.Invitation.Token

	if _, err := svc.Accept(token, "tg-1", AcceptOverrides{}); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	var acceptedErr *AlreadyAcceptedError
	_, err := svc.Accept(token, "tg-2", AcceptOverrides{})
	if !errors.As(err, &acceptedErr) {
		t.Fatalf("expected already-accepted, got %v", err)
	}
	if acceptedErr.Employee == nil || acceptedErr.Employee.TelegramID != "tg-1" {
		t.Fatalf("expected linked employee in error, got %+v", acceptedErr.Employee)
	}
}

func TestAcceptConflictRollsBack(t *testing.T) {
	db := newTestDB(t)
	svc := NewInvitationService(db)

	first := mustCreate(t, svc, "Ahmed")
	if _, err := svc.Accept(*first.Invitation.Token, "tg-1", AcceptOverrides{}); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	second := mustCreate(t, svc, "Mona")
	var conflictErr *ConflictError
	if _, err := svc.Accept(*second.Invitation.Token, "tg-1", AcceptOverrides{}); !errors.As(err, &conflictErr) {
		t.Fatalf("expected conflict for duplicate telegram identity, got %v", err)
	}

	// the losing accept must not leave partial state behind
	var stored models.Invitation
	db.Where("token = ?", *second.Invitation.Token).First(&stored)
	if stored.Status != models.InvitationPending || stored.EmployeeID != nil {
		t.Fatalf("invitation mutated by failed accept: %+v", stored)
	}
	var employees int64
	db.Model(&models.Employee{}).Count(&employees)
	if employees != 1 {
		t.Fatalf("expected exactly one employee, got %d", employees)
	}
}

func TestAcceptExpiredAndCancelled(t *testing.T) {
	db := newTestDB(t)
	svc := NewInvitationService(db)

	expired := mustCreate(t, svc, "Ahmed")
	db.Model(expired.Invitation).Update("expires_at", time.Now().Add(-time.Minute))
	var expiredErr *ExpiredError
	if _, err := svc.Accept(*expired.Invitation.Token, "tg-9", AcceptOverrides{}); !errors.As(err, &expiredErr) {
		t.Fatalf("expected expired, got %v", err)
	}

	cancelled := mustCreate(t, svc, "Mona")
	if _, err := svc.Cancel(*cancelled.Invitation.Token); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Accept(*cancelled.Invitation.Token, "tg-9", AcceptOverrides{}); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}

	var employees int64
	db.Model(&models.Employee{}).Count(&employees)
	if employees != 0 {
		t.Fatalf("expected no employees, got %d", employees)
	}
}

func TestAcceptExpiredPersistsTransition(t *testing.T) {
	db := newTestDB(t)
	svc := NewInvitationService(db)

	created := mustCreate(t, svc, "Ahmed")
	token := *created.Invitation.Token
	db.Model(created.Invitation).Update("expires_at", time.Now().Add(-time.Minute))

	var expiredErr *ExpiredError
	if _, err := svc.Accept(token, "tg-9", AcceptOverrides{}); !errors.As(err, &expiredErr) {
		t.Fatalf("expected expired, got %v", err)
	}
	if !expiredErr.JustExpired {
		t.Fatal("first accept should perform the lazy transition")
	}

	// the status write must survive the failed accept
	var stored models.Invitation
	if err := db.Where("token = ?", token).First(&stored).Error; err != nil {
		t.Fatalf("load invitation: %v", err)
	}
	if stored.Status != models.InvitationExpired {
		t.Fatalf("expected stored status expired, got %s", stored.Status)
	}

	if _, err := svc.Accept(token, "tg-9", AcceptOverrides{}); !errors.As(err, &expiredErr) {
		t.Fatalf("expected expired on retry, got %v", err)
	} else if expiredErr.JustExpired {
		t.Fatal("second accept must report already-expired")
	}
}

func TestCancelNeverTouchesAccepted(t *testing.T) {
	svc := NewInvitationService(newTestDB(t))
	created := mustCreate(t, svc, "Ahmed")
	token := *created.Invitation.Token

	if _, err := svc.Accept(token, "tg-1", AcceptOverrides{}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	var conflictErr *ConflictError
	if _, err := svc.Cancel(token); !errors.As(err, &conflictErr) {
		t.Fatalf("expected conflict cancelling accepted invitation, got %v", err)
	}
}

func TestResendRefreshesDefaultWindow(t *testing.T) {
	db := newTestDB(t)
	svc := NewInvitationService(db)
	created := mustCreate(t, svc, "Ahmed")

	db.Model(created.Invitation).Update("expires_at", time.Now().Add(time.Hour))

	inv, err := svc.Resend(*created.Invitation.Token)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if !withinSeconds(inv.ExpiresAt, time.Now().AddDate(0, 0, 7), 5) {
		t.Fatalf("expected ~now+7d, got %v", inv.ExpiresAt)
	}
	if inv.Status != models.InvitationPending {
		t.Fatalf("resend must not change status, got %s", inv.Status)
	}
}

func TestExtendFromNowNotFromOldExpiry(t *testing.T) {
	db := newTestDB(t)
	svc := NewInvitationService(db)
	created := mustCreate(t, svc, "Ahmed")

	db.Model(created.Invitation).Update("expires_at", time.Now().AddDate(0, 0, 90))

	inv, err := svc.Extend(*created.Invitation.Token, 10)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !withinSeconds(inv.ExpiresAt, time.Now().AddDate(0, 0, 10), 5) {
		t.Fatalf("expected ~now+10d regardless of prior expiry, got %v", inv.ExpiresAt)
	}

	var validationErr *ValidationError
	if _, err := svc.Extend(*created.Invitation.Token, -1); !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for negative days, got %v", err)
	}
}

func TestExtendIllegalStates(t *testing.T) {
	svc := NewInvitationService(newTestDB(t))

	accepted := mustCreate(t, svc, "Ahmed")
	if _, err := svc.Accept(*accepted.Invitation.Token, "tg-1", AcceptOverrides{}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	var acceptedErr *AlreadyAcceptedError
	if _, err := svc.Extend(*accepted.Invitation.Token, 5); !errors.As(err, &acceptedErr) {
		t.Fatalf("expected already-accepted, got %v", err)
	}

	cancelled := mustCreate(t, svc, "Mona")
	if _, err := svc.Cancel(*cancelled.Invitation.Token); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Resend(*cancelled.Invitation.Token); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
}

func TestExtendRevivesLapsedPending(t *testing.T) {
	db := newTestDB(t)
	svc := NewInvitationService(db)

	created := mustCreate(t, svc, "Ahmed")
	token := *created.Invitation.Token
	db.Model(created.Invitation).Update("expires_at", time.Now().Add(-time.Hour))

	// a lapsed deadline on a row still stored pending can be pushed forward
	extended, err := svc.Extend(token, 5)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !withinSeconds(extended.ExpiresAt, time.Now().AddDate(0, 0, 5), 5) {
		t.Fatalf("expected expiry ~now+5d, got %v", extended.ExpiresAt)
	}

	// once a read has flipped the row, extension is refused
	lapsed := mustCreate(t, svc, "Mona")
	db.Model(lapsed.Invitation).Update("expires_at", time.Now().Add(-time.Hour))
	var expiredErr *ExpiredError
	if _, err := svc.Resolve(*lapsed.Invitation.Token); !errors.As(err, &expiredErr) {
		t.Fatalf("expected expired, got %v", err)
	}
	if _, err := svc.Extend(*lapsed.Invitation.Token, 5); !errors.As(err, &expiredErr) {
		t.Fatalf("expected expired on extend, got %v", err)
	}
}

func TestBulkDeleteAllOrNothing(t *testing.T) {
	db := newTestDB(t)
	svc := NewInvitationService(db)

	pending := mustCreate(t, svc, "Ahmed")
	accepted := mustCreate(t, svc, "Mona")
	if _, err := svc.Accept(*accepted.Invitation.Token, "tg-1", AcceptOverrides{}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	var conflictErr *ConflictError
	_, err := svc.BulkDelete([]string{*pending.Invitation.Token, *accepted.Invitation.Token})
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// the pending invitation must survive the failed bulk delete
	var count int64
	db.Model(&models.Invitation{}).Count(&count)
	if count != 2 {
		t.Fatalf("expected both rows intact, got %d", count)
	}

	if _, err := svc.BulkDelete([]string{*pending.Invitation.Token, "missing-token"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for missing token, got %v", err)
	}

	other := mustCreate(t, svc, "Omar")
	deleted, err := svc.BulkDelete([]string{*pending.Invitation.Token, *other.Invitation.Token})
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
	db.Model(&models.Invitation{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected only the accepted row to remain, got %d", count)
	}
}

func TestListPaginationAndFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewInvitationService(db)

	names := []string{"A", "B", "C"}
	for i, name := range names {
		created, err := svc.Create(InvitationPayload{FirstName: name}, "1", 0)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		// space the creation times out so ordering is deterministic
		db.Model(created.Invitation).Update("invited_at", time.Now().Add(time.Duration(i)*time.Minute))
	}
	other, err := svc.Create(InvitationPayload{FirstName: "D"}, "2", 0)
	if err != nil {
		t.Fatalf("create D: %v", err)
	}
	if _, err := svc.Cancel(*other.Invitation.Token); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	page, err := svc.List(ListFilter{InvitedBy: "1", Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || page.Pages != 2 || len(page.Invitations) != 2 {
		t.Fatalf("unexpected page: total=%d pages=%d len=%d", page.Total, page.Pages, len(page.Invitations))
	}
	if page.Invitations[0].FirstName != "C" || page.Invitations[1].FirstName != "B" {
		t.Fatalf("expected invitedAt desc order, got %s, %s", page.Invitations[0].FirstName, page.Invitations[1].FirstName)
	}

	cancelledPage, err := svc.List(ListFilter{Status: models.InvitationCancelled})
	if err != nil {
		t.Fatalf("list cancelled: %v", err)
	}
	if cancelledPage.Total != 1 || cancelledPage.Page != 1 || cancelledPage.Limit != 50 {
		t.Fatalf("unexpected cancelled page: %+v", cancelledPage)
	}

	var validationErr *ValidationError
	if _, err := svc.List(ListFilter{Page: -1}); !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for negative page, got %v", err)
	}
	if _, err := svc.List(ListFilter{Status: "unknown"}); !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}
