package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-conditions/internal/config"
	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
	pb "github.com/oshokin/alarm-conditions/internal/pb/v1"
)

// fieldSavedAt is the snapshot field holding the checkpoint time.
const fieldSavedAt = "saved_at"

// Snapshot is the persisted set of retained conditions and branches.
type Snapshot struct {
	// SavedAt is when the checkpoint was taken.
	SavedAt time.Time
	// Records are the retained records in refresh order.
	Records []domain.EventRecord
}

// Repository defines persistence operations for retained conditions.
type Repository interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
}

// FileRepository persists snapshots to a JSON file on disk.
// JSON is produced and consumed via protobuf JSON (protojson) using the
// same Struct encoding as the wire API.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

// ErrNotFound is returned when the state file does not exist yet.
var ErrNotFound = errors.New("state not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the state file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the snapshot from disk.
func (r *FileRepository) Load(_ context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var message structpb.Struct
	if err = protojson.Unmarshal(contents, &message); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	records, err := pb.DecodeRecords(&message)
	if err != nil {
		return nil, fmt.Errorf("decode state records: %w", err)
	}

	snapshot := &Snapshot{
		Records: records,
	}

	if raw := message.GetFields()[fieldSavedAt].GetStringValue(); raw != "" {
		if snapshot.SavedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return nil, fmt.Errorf("decode checkpoint time: %w", err)
		}
	}

	return snapshot, nil
}

// Save writes the snapshot next to the target and renames it into place,
// so a crash never leaves a half-written file behind.
func (r *FileRepository) Save(_ context.Context, snapshot *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	message, err := pb.EncodeRecords(snapshot.Records)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if !snapshot.SavedAt.IsZero() {
		message.Fields[fieldSavedAt] = structpb.NewStringValue(snapshot.SavedAt.UTC().Format(time.RFC3339Nano))
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary state file: %w", err)
	}

	tmpPath := tmp.Name()

	defer func() {
		// Removing a renamed file fails harmlessly.
		_ = os.Remove(tmpPath)
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write state file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}

	if err = os.Chmod(tmpPath, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("chmod state file: %w", err)
	}

	if err = os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
