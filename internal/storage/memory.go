package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"kennapartner-api/internal/models"
)

// userRecord is the persisted shape of a credential document. It exists so
// the password hash survives JSON persistence while models.User keeps the
// hash out of API envelopes.
type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (r userRecord) toModel() models.User {
	return models.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// insightRecord stores author references as ids; reads resolve them to full
// author documents. Deleting an insight only drops the references.
type insightRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	FileURL   *string   `json:"fileUrl"`
	AuthorIDs []string  `json:"authorIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type dataset struct {
	Users          map[string]userRecord           `json:"users"`
	Books          map[string]models.Book          `json:"books"`
	News           map[string]models.News          `json:"news"`
	Insights       map[string]insightRecord        `json:"insights"`
	InsightAuthors map[string]models.InsightAuthor `json:"insightAuthors"`
}

func newDataset() dataset {
	return dataset{
		Users:          make(map[string]userRecord),
		Books:          make(map[string]models.Book),
		News:           make(map[string]models.News),
		Insights:       make(map[string]insightRecord),
		InsightAuthors: make(map[string]models.InsightAuthor),
	}
}

func cloneDataset(data dataset) dataset {
	clone := newDataset()
	for id, user := range data.Users {
		clone.Users[id] = user
	}
	for id, book := range data.Books {
		clone.Books[id] = book
	}
	for id, item := range data.News {
		clone.News[id] = item
	}
	for id, insight := range data.Insights {
		insight.AuthorIDs = append([]string(nil), insight.AuthorIDs...)
		clone.Insights[id] = insight
	}
	for id, author := range data.InsightAuthors {
		clone.InsightAuthors[id] = author
	}
	return clone
}

// Storage is the JSON-file-backed driver. Writes clone the dataset, persist
// the clone, and swap it in only when the file write succeeds, so a failed
// persist never leaves partial state in memory.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

// NewStorage loads (or initialises) the JSON datastore at path.
func NewStorage(path string) (*Storage, error) {
	store := &Storage{filePath: path}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()
	return nil
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Users == nil {
		s.data.Users = make(map[string]userRecord)
	}
	if s.data.Books == nil {
		s.data.Books = make(map[string]models.Book)
	}
	if s.data.News == nil {
		s.data.News = make(map[string]models.News)
	}
	if s.data.Insights == nil {
		s.data.Insights = make(map[string]insightRecord)
	}
	if s.data.InsightAuthors == nil {
		s.data.InsightAuthors = make(map[string]models.InsightAuthor)
	}
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		return s.persistOverride(data)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

// newDocumentID produces the store-assigned opaque id shared by both
// drivers: 16 random bytes, hex encoded.
func newDocumentID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

func (s *Storage) generateID() (string, error) {
	return newDocumentID()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// Ping always succeeds for the in-memory driver.
func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op; the driver holds no connections.
func (s *Storage) Close(ctx context.Context) error {
	return nil
}

// CreateUser persists a credential record, enforcing username uniqueness
// under the store's write lock.
func (s *Storage) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	if params.Password == "" {
		return models.User{}, errors.New("password is required")
	}

	hashed, err := HashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.data.Users {
		if user.Username == username {
			return models.User{}, fmt.Errorf("username %s: %w", username, ErrConflict)
		}
	}

	id, err := s.generateID()
	if err != nil {
		return models.User{}, err
	}

	now := nowUTC()
	record := userRecord{
		ID:           id,
		Username:     username,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	updated := cloneDataset(s.data)
	updated.Users[id] = record
	if err := s.persistDataset(updated); err != nil {
		return models.User{}, err
	}
	s.data = updated

	return record.toModel(), nil
}

// GetUser resolves a credential record by id.
func (s *Storage) GetUser(ctx context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.data.Users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return record.toModel(), nil
}

// FindUserByUsername resolves a credential record by exact username match.
func (s *Storage) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.data.Users {
		if record.Username == username {
			return record.toModel(), nil
		}
	}
	return models.User{}, ErrNotFound
}

// AuthenticateUser verifies credentials and returns the matching user.
// Unknown usernames return ErrNotFound; password mismatches return
// ErrInvalidCredentials.
func (s *Storage) AuthenticateUser(ctx context.Context, username, password string) (models.User, error) {
	user, err := s.FindUserByUsername(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func sortedByCreation[T any](items []T, createdAt func(T) time.Time, id func(T) string) []T {
	sort.Slice(items, func(i, j int) bool {
		a, b := createdAt(items[i]), createdAt(items[j])
		if a.Equal(b) {
			return id(items[i]) < id(items[j])
		}
		return a.Before(b)
	})
	return items
}
