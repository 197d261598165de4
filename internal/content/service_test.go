// AngelaMos | 2026
// service_test.go

package content

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/diplomate/backend/internal/core"
)

type fakeRepo struct {
	folders map[string]*Folder
	notes   map[string][]Note

	createNoteErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		folders: make(map[string]*Folder),
		notes:   make(map[string][]Note),
	}
}

func (f *fakeRepo) addFolder(id, subject string) {
	f.folders[id] = &Folder{
		ID:       id,
		Name:     subject + " Notes",
		Subject:  subject,
		IsActive: true,
	}
}

func (f *fakeRepo) ListFolders(
	_ context.Context,
	params ListFoldersParams,
) ([]Folder, error) {
	var out []Folder
	for _, folder := range f.folders {
		if params.Subject != "" && folder.Subject != params.Subject {
			continue
		}
		out = append(out, *folder)
	}
	return out, nil
}

func (f *fakeRepo) GetFolder(_ context.Context, id string) (*Folder, error) {
	folder, ok := f.folders[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *folder
	return &cp, nil
}

func (f *fakeRepo) CreateFolder(_ context.Context, folder *Folder) error {
	folder.IsActive = true
	folder.CreatedAt = time.Now()
	cp := *folder
	f.folders[folder.ID] = &cp
	return nil
}

func (f *fakeRepo) ListNotes(
	_ context.Context,
	folderID string,
) ([]Note, error) {
	return f.notes[folderID], nil
}

func (f *fakeRepo) CreateNote(_ context.Context, note *Note) error {
	if f.createNoteErr != nil {
		return f.createNoteErr
	}
	note.IsActive = true
	note.CreatedAt = time.Now()
	f.notes[note.FolderID] = append(f.notes[note.FolderID], *note)
	return nil
}

type fakeGate struct {
	approved map[string]bool
	err      error
	calls    int
}

func (f *fakeGate) CanAccess(
	_ context.Context,
	userID, folderID string,
) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.approved[userID+"/"+folderID], nil
}

type fakeUploader struct {
	uploads []string
	deletes []string
}

func (f *fakeUploader) Upload(
	_ context.Context,
	path string,
	_ io.Reader,
	_ string,
) (string, error) {
	f.uploads = append(f.uploads, path)
	return "https://cdn.example.com/" + path, nil
}

func (f *fakeUploader) Delete(_ context.Context, path string) error {
	f.deletes = append(f.deletes, path)
	return nil
}

func newTestService(
	repo *fakeRepo,
	gate *fakeGate,
	up *fakeUploader,
) *Service {
	return NewService(repo, gate, up, 199, slog.Default())
}

func TestListNotesRequiresApprovedPurchase(t *testing.T) {
	repo := newFakeRepo()
	repo.addFolder("folder-1", "Thermodynamics")
	gate := &fakeGate{approved: map[string]bool{}}
	svc := newTestService(repo, gate, &fakeUploader{})

	_, err := svc.ListNotes(context.Background(), "user-1", "folder-1", false)
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}

	gate.approved["user-1/folder-1"] = true
	if _, err := svc.ListNotes(context.Background(), "user-1", "folder-1", false); err != nil {
		t.Fatalf("ListNotes() after approval error = %v", err)
	}
}

func TestListNotesChecksGateEveryCall(t *testing.T) {
	repo := newFakeRepo()
	repo.addFolder("folder-1", "Thermodynamics")
	gate := &fakeGate{
		approved: map[string]bool{"user-1/folder-1": true},
	}
	svc := newTestService(repo, gate, &fakeUploader{})

	for range 3 {
		if _, err := svc.ListNotes(context.Background(), "user-1", "folder-1", false); err != nil {
			t.Fatalf("ListNotes() error = %v", err)
		}
	}
	if gate.calls != 3 {
		t.Fatalf("gate calls = %d, want 3 (no caching)", gate.calls)
	}

	// Pulling the approval takes effect on the very next request.
	gate.approved["user-1/folder-1"] = false
	_, err := svc.ListNotes(context.Background(), "user-1", "folder-1", false)
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("error after revocation = %v, want ErrForbidden", err)
	}
}

func TestListNotesAdminBypassesGate(t *testing.T) {
	repo := newFakeRepo()
	repo.addFolder("folder-1", "Thermodynamics")
	gate := &fakeGate{approved: map[string]bool{}}
	svc := newTestService(repo, gate, &fakeUploader{})

	if _, err := svc.ListNotes(context.Background(), "admin-1", "folder-1", true); err != nil {
		t.Fatalf("admin ListNotes() error = %v", err)
	}
	if gate.calls != 0 {
		t.Fatalf("gate consulted for admin: %d calls", gate.calls)
	}
}

func TestListNotesGateErrorDeniesAccess(t *testing.T) {
	repo := newFakeRepo()
	repo.addFolder("folder-1", "Thermodynamics")
	gate := &fakeGate{err: errors.New("db down")}
	svc := newTestService(repo, gate, &fakeUploader{})

	if _, err := svc.ListNotes(context.Background(), "user-1", "folder-1", false); err == nil {
		t.Fatal("gate failure did not deny access")
	}
}

func TestListNotesUnknownFolder(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeGate{}, &fakeUploader{})

	_, err := svc.ListNotes(context.Background(), "user-1", "missing", false)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestCreateFolderDefaultsPrice(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeGate{}, &fakeUploader{})

	folder, err := svc.CreateFolder(context.Background(), CreateFolderRequest{
		Name:       "ML Bundle",
		Department: "AIML",
		Semester:   "Sem 3",
		Subject:    "Machine Learning Basics",
	})
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}
	if folder.Price != 199 {
		t.Fatalf("price = %d, want default 199", folder.Price)
	}
}

func TestUploadNoteStoresBlobAndRow(t *testing.T) {
	repo := newFakeRepo()
	repo.addFolder("folder-1", "Thermodynamics")
	up := &fakeUploader{}
	svc := newTestService(repo, &fakeGate{}, up)

	note, err := svc.UploadNote(
		context.Background(),
		"folder-1",
		UploadNoteRequest{Title: "Chapter 1"},
		strings.NewReader("%PDF-1.7"),
		"chapter1.pdf",
		2048,
		"application/pdf",
	)
	if err != nil {
		t.Fatalf("UploadNote() error = %v", err)
	}

	if note.FileURL == "" || note.FileSize != 2048 {
		t.Fatalf("note = %+v", note)
	}
	if len(up.uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(up.uploads))
	}
	if !strings.HasSuffix(up.uploads[0], ".pdf") {
		t.Fatalf("upload path = %q, want .pdf extension", up.uploads[0])
	}
}

func TestUploadNoteReapsBlobOnInsertFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.addFolder("folder-1", "Thermodynamics")
	repo.createNoteErr = errors.New("insert failed")
	up := &fakeUploader{}
	svc := newTestService(repo, &fakeGate{}, up)

	_, err := svc.UploadNote(
		context.Background(),
		"folder-1",
		UploadNoteRequest{Title: "Chapter 1"},
		strings.NewReader("%PDF-1.7"),
		"chapter1.pdf",
		2048,
		"application/pdf",
	)
	if err == nil {
		t.Fatal("UploadNote() succeeded despite insert failure")
	}
	if len(up.deletes) != 1 {
		t.Fatalf("deletes = %d, want 1", len(up.deletes))
	}
}
