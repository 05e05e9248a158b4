// Файл: internal/stubserver/store.go
package stubserver

import (
	"sync"
	"time"

	"company-management/internal/entities"
	apperrors "company-management/pkg/errors"

	"golang.org/x/crypto/bcrypt"
)

// User — учетка демо-бэкенда. Пароль хранится bcrypt-хэшем.
type User struct {
	ID           uint64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash []byte
}

// Store — состояние бэкенда в памяти процесса. Никакой персистентности:
// ядро по контракту не переживает рестарт, и его дублер тоже.
type Store struct {
	mu            sync.RWMutex
	users         map[string]*User
	notifications map[string][]entities.Notification
	messages      []entities.ChatMessage
	tasks         map[uint64]*entities.Task

	nextUserID  uint64
	nextNotifID uint64
	nextMsgID   uint64
	nextTaskID  uint64
}

func NewStore() *Store {
	return &Store{
		users:         make(map[string]*User),
		notifications: make(map[string][]entities.Notification),
		tasks:         make(map[uint64]*entities.Task),
	}
}

func (s *Store) AddUser(email, password, firstName, lastName string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	u := &User{
		ID:           s.nextUserID,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
	}
	s.users[email] = u
	return u, nil
}

func (s *Store) Authenticate(email, password string) (*User, error) {
	s.mu.RLock()
	u, ok := s.users[email]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, apperrors.ErrBadRequest
	}
	return u, nil
}

// AddNotification создает запись для получателя и возвращает ее с
// назначенным id.
func (s *Store) AddNotification(recipient string, typ entities.NotificationType, message string) entities.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNotifID++
	n := entities.Notification{
		ID:        s.nextNotifID,
		Type:      typ,
		Message:   message,
		Read:      false,
		Timestamp: time.Now().UTC(),
	}
	s.notifications[recipient] = append(s.notifications[recipient], n)
	return n
}

func (s *Store) NotificationsFor(recipient string) []entities.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.notifications[recipient]
	out := make([]entities.Notification, len(src))
	copy(out, src)
	return out
}

func (s *Store) MarkNotificationRead(recipient string, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifications[recipient]
	for i := range list {
		if list[i].ID == id {
			list[i].Read = true
			return true
		}
	}
	return false
}

// SaveMessage назначает сообщению серверный id и сохраняет его.
func (s *Store) SaveMessage(m entities.ChatMessage) entities.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMsgID++
	m.ID = s.nextMsgID
	s.messages = append(s.messages, m)
	return m
}

// MessagesFor — история неупорядоченной пары (a, b).
func (s *Store) MessagesFor(a, b string) []entities.ChatMessage {
	pair := entities.NewPairKey(a, b)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entities.ChatMessage
	for _, m := range s.messages {
		if m.Pair() == pair {
			out = append(out, m)
		}
	}
	return out
}

func (s *Store) AddTask(t entities.Task) entities.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTaskID++
	t.ID = s.nextTaskID
	s.tasks[t.ID] = &t
	return t
}

func (s *Store) Tasks() []entities.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	return out
}

// UpdateTask применяет частичное обновление (status и/или stars).
func (s *Store) UpdateTask(id uint64, status *string, stars *int) (entities.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return entities.Task{}, false
	}
	if status != nil && entities.ValidTaskStatus(*status) {
		t.Status = entities.TaskStatus(*status)
	}
	if stars != nil {
		t.Rating = *stars
	}
	return *t, true
}
