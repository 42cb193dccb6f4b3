package user

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Store holds every account in memory and persists them to one file.
// It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	path   string
	users  []*User
	nextID uint32
	now    func() time.Time
}

// Open loads the user file at path. A missing file yields an empty store
// that Save will create.
func Open(path string) (*Store, error) {
	s := &Store{path: path, nextID: 1, now: time.Now}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("user: open %q: %w", path, err)
	}
	defer f.Close()

	if err := s.load(f); err != nil {
		return nil, fmt.Errorf("user: load %q: %w", path, err)
	}
	return s, nil
}

func (s *Store) load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		u, err := parseRecord(text)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		s.users = append(s.users, u)
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
	}
	return scanner.Err()
}

func parseRecord(text string) (*User, error) {
	fields := strings.Split(text, "\t")
	if len(fields) != 6 {
		return nil, fmt.Errorf("expected 6 fields, got %d", len(fields))
	}
	id, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	kind, err := strconv.ParseUint(fields[3], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("type: %w", err)
	}
	seen, err := strconv.ParseInt(fields[5], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("last seen: %w", err)
	}
	return &User{
		ID:           uint32(id),
		Username:     fields[1],
		Email:        fields[2],
		Type:         Type(kind),
		PasswordHash: fields[4],
		LastSeen:     time.Unix(seen, 0),
	}, nil
}

func formatRecord(u *User) string {
	return strings.Join([]string{
		strconv.FormatUint(uint64(u.ID), 10),
		u.Username,
		u.Email,
		strconv.Itoa(int(u.Type)),
		u.PasswordHash,
		strconv.FormatInt(u.LastSeen.Unix(), 10),
	}, "\t")
}

// Save writes every record to a temporary file and renames it over the
// user file.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".users-*")
	if err != nil {
		return fmt.Errorf("user: save: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, u := range s.users {
		if _, err := fmt.Fprintln(w, formatRecord(u)); err != nil {
			tmp.Close()
			return fmt.Errorf("user: save: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("user: save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("user: save: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("user: save: %w", err)
	}
	return nil
}

// Add creates an account and returns a copy of the stored record.
func (s *Store) Add(username, email, password string, kind Type) (User, error) {
	if !ValidUsername(username) {
		return User{}, ErrInvalidName
	}
	if !validEmail(email) {
		return User{}, ErrInvalidEmail
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(username) != nil {
		return User{}, fmt.Errorf("%w: %s", ErrExists, username)
	}
	u := &User{
		ID:           s.nextID,
		Username:     username,
		Email:        email,
		Type:         kind,
		PasswordHash: hash,
		LastSeen:     s.now(),
	}
	s.nextID++
	s.users = append(s.users, u)
	return *u, nil
}

// Remove deletes the account with the given id.
func (s *Store) Remove(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.users {
		if u.ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Store) ByID(id uint32) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			return *u, nil
		}
	}
	return User{}, ErrNotFound
}

// ByName looks up an account ignoring case.
func (s *Store) ByName(name string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u := s.find(name); u != nil {
		return *u, nil
	}
	return User{}, ErrNotFound
}

func (s *Store) find(name string) *User {
	for _, u := range s.users {
		if strings.EqualFold(u.Username, name) {
			return u
		}
	}
	return nil
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// All returns copies of every record ordered by id.
func (s *Store) All() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Authenticate checks a login and, on success, stamps the last-seen time.
// Unknown names and wrong passwords both return ErrBadPassword.
func (s *Store) Authenticate(name, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.find(name)
	if u == nil {
		return User{}, ErrBadPassword
	}
	if err := u.CheckPassword(password); err != nil {
		return User{}, err
	}
	u.LastSeen = s.now()
	return *u, nil
}

// SetPassword replaces the password of the account with the given id.
func (s *Store) SetPassword(id uint32, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return ErrNotFound
}
