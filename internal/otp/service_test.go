// AngelaMos | 2026
// service_test.go

package otp

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type fakeRepo struct {
	challenges map[string]*Challenge
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{challenges: make(map[string]*Challenge)}
}

func (f *fakeRepo) Replace(_ context.Context, ch *Challenge) error {
	cp := *ch
	cp.CreatedAt = time.Now()
	f.challenges[ch.Email] = &cp
	return nil
}

func (f *fakeRepo) Get(_ context.Context, email string) (*Challenge, error) {
	ch, ok := f.challenges[email]
	if !ok {
		return nil, errors.New("not found")
	}
	return ch, nil
}

func (f *fakeRepo) ConsumeValid(
	_ context.Context,
	email, code string,
) (bool, error) {
	ch, ok := f.challenges[email]
	if !ok || ch.Code != code || ch.Expired(time.Now()) {
		return false, nil
	}
	delete(f.challenges, email)
	return true, nil
}

func (f *fakeRepo) DeleteExpired(_ context.Context) (int64, error) {
	var removed int64
	for email, ch := range f.challenges {
		if ch.Expired(time.Now()) {
			delete(f.challenges, email)
			removed++
		}
	}
	return removed, nil
}

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeThrottle struct {
	err error
}

func (f *fakeThrottle) Allow(_ context.Context, _ string) error {
	return f.err
}

func newTestService(
	repo *fakeRepo,
	mailer *fakeMailer,
	throttle Throttle,
) *Service {
	return NewService(repo, mailer, throttle, 5*time.Minute, slog.Default())
}

func TestIssueStoresAndSends(t *testing.T) {
	repo := newFakeRepo()
	mailer := &fakeMailer{}
	svc := newTestService(repo, mailer, &fakeThrottle{})

	code, err := svc.Issue(context.Background(), "Student@Example.COM")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if len(code) != 6 {
		t.Fatalf("code length = %d, want 6", len(code))
	}

	ch, err := repo.Get(context.Background(), "student@example.com")
	if err != nil {
		t.Fatalf("challenge not stored: %v", err)
	}
	if ch.Code != code {
		t.Fatalf("stored code %q != issued code %q", ch.Code, code)
	}

	if len(mailer.sent) != 1 || mailer.sent[0] != "student@example.com" {
		t.Fatalf("mail sent to %v, want [student@example.com]", mailer.sent)
	}
}

func TestIssueReplacesPriorChallenge(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeMailer{}, &fakeThrottle{})

	first, err := svc.Issue(context.Background(), "a@b.edu")
	if err != nil {
		t.Fatalf("first Issue() error = %v", err)
	}

	second, err := svc.Issue(context.Background(), "a@b.edu")
	if err != nil {
		t.Fatalf("second Issue() error = %v", err)
	}

	if len(repo.challenges) != 1 {
		t.Fatalf("challenge count = %d, want 1", len(repo.challenges))
	}

	valid, err := svc.Verify(context.Background(), "a@b.edu", first)
	if err != nil {
		t.Fatalf("Verify(first) error = %v", err)
	}
	if valid && first != second {
		t.Fatal("stale code still verified after reissue")
	}

	valid, err = svc.Verify(context.Background(), "a@b.edu", second)
	if err != nil {
		t.Fatalf("Verify(second) error = %v", err)
	}
	if !valid {
		t.Fatal("latest code did not verify")
	}
}

func TestIssueSendFailureKeepsChallenge(t *testing.T) {
	repo := newFakeRepo()
	mailer := &fakeMailer{err: errors.New("smtp down")}
	svc := newTestService(repo, mailer, &fakeThrottle{})

	if _, err := svc.Issue(context.Background(), "a@b.edu"); err == nil {
		t.Fatal("Issue() succeeded despite send failure")
	}

	// The stored challenge survives the failed send, so a later code
	// entered from a delayed delivery still works.
	if _, err := repo.Get(context.Background(), "a@b.edu"); err != nil {
		t.Fatalf("challenge rolled back on send failure: %v", err)
	}
}

func TestIssueThrottled(t *testing.T) {
	repo := newFakeRepo()
	throttle := &fakeThrottle{err: errors.New("cooldown")}
	svc := newTestService(repo, &fakeMailer{}, throttle)

	if _, err := svc.Issue(context.Background(), "a@b.edu"); err == nil {
		t.Fatal("Issue() ignored throttle")
	}

	if len(repo.challenges) != 0 {
		t.Fatal("challenge stored despite throttle rejection")
	}
}

func TestVerifySingleUse(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeMailer{}, &fakeThrottle{})

	code, err := svc.Issue(context.Background(), "a@b.edu")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	valid, err := svc.Verify(context.Background(), "a@b.edu", code)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !valid {
		t.Fatal("fresh code did not verify")
	}

	valid, err = svc.Verify(context.Background(), "a@b.edu", code)
	if err != nil {
		t.Fatalf("second Verify() error = %v", err)
	}
	if valid {
		t.Fatal("code verified twice")
	}
}

func TestVerifyWrongCodeLeavesChallenge(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeMailer{}, &fakeThrottle{})

	code, err := svc.Issue(context.Background(), "a@b.edu")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	valid, err := svc.Verify(context.Background(), "a@b.edu", "000000")
	if err != nil {
		t.Fatalf("Verify(wrong) error = %v", err)
	}
	if valid && code != "000000" {
		t.Fatal("wrong code verified")
	}

	valid, err = svc.Verify(context.Background(), "a@b.edu", code)
	if err != nil {
		t.Fatalf("Verify(right) error = %v", err)
	}
	if !valid {
		t.Fatal("correct code rejected after failed attempt")
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeMailer{}, &fakeThrottle{})

	repo.challenges["a@b.edu"] = &Challenge{
		Email:     "a@b.edu",
		Code:      "123456",
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	valid, err := svc.Verify(context.Background(), "a@b.edu", "123456")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if valid {
		t.Fatal("expired code verified")
	}
}

func TestVerifyUnknownEmail(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeMailer{}, &fakeThrottle{})

	valid, err := svc.Verify(context.Background(), "nobody@b.edu", "123456")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if valid {
		t.Fatal("code verified for email with no challenge")
	}
}
