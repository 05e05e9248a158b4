// Файл: internal/services/board_service.go
package services

import (
	"context"
	"sync"
	"time"

	"company-management/internal/dto"
	"company-management/internal/entities"
	"company-management/internal/repositories"
	apperrors "company-management/pkg/errors"
	"company-management/pkg/speculative"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type BoardServiceInterface interface {
	LoadBoard(ctx context.Context) error
	MoveTask(taskID uint64, dest entities.TaskStatus, destIndex int) error
	RateTask(taskID uint64, stars int) error
	OnAuthoritativeUpdate(task entities.Task)
	BoardState() map[uint64]entities.TaskView
	HasPending(taskID uint64) bool
}

// boardSnapshot — состояние задачи до спекулятивной мутации:
// сама запись плюс ее позиция в колонке. Этого достаточно для
// бит-в-бит восстановления при откате.
type boardSnapshot struct {
	task  entities.Task
	index int
}

// BoardService — оптимистичные мутации kanban-доски. Перенос или оценка
// применяются к локальному состоянию синхронно (drag-and-drop должен
// ощущаться мгновенным), commit уходит на сервер асинхронно; по задаче
// одновременно может висеть максимум одна незавершенная мутация —
// последовательно, без конвейера, иначе цель отката становится
// неоднозначной.
type BoardService struct {
	mu       sync.Mutex
	tasks    map[uint64]*entities.Task
	columns  map[entities.TaskStatus][]uint64
	pending  map[uint64]*speculative.Txn[boardSnapshot]
	buffered map[uint64]*entities.Task

	repo      repositories.TaskRepositoryInterface
	validate  *validator.Validate
	notifyErr func(message string)
	// onResolved дергается после commit/rollback; нужен тестам,
	// чтобы дождаться разрешения асинхронного commit.
	onResolved func(taskID uint64, committed bool)
	logger     *zap.Logger
}

func NewBoardService(
	repo repositories.TaskRepositoryInterface,
	notifyErr func(message string),
	logger *zap.Logger,
) *BoardService {
	if notifyErr == nil {
		notifyErr = func(string) {}
	}
	return &BoardService{
		tasks:     make(map[uint64]*entities.Task),
		columns:   make(map[entities.TaskStatus][]uint64),
		pending:   make(map[uint64]*speculative.Txn[boardSnapshot]),
		buffered:  make(map[uint64]*entities.Task),
		repo:      repo,
		validate:  validator.New(),
		notifyErr: notifyErr,
		logger:    logger,
	}
}

// SetOnResolved регистрирует хук завершения мутации.
func (s *BoardService) SetOnResolved(fn func(taskID uint64, committed bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResolved = fn
}

// LoadBoard сидирует доску разовой REST-загрузкой. Загрузка сливается с
// локальным состоянием, а не пересобирает его: авторитетный push,
// примененный пока REST-ответ был в полете, новее этого ответа, и
// затирать его устаревшим срезом нельзя (как и задачу с висящей
// мутацией — ее снимок перестал бы соответствовать доске). Неудача
// оставляет доску как есть (деградация, не падение).
func (s *BoardService) LoadBoard(ctx context.Context) error {
	fetched, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Warn("Начальная загрузка доски не удалась, доска пуста",
			zap.Error(apperrors.NewFetchError("tasks", err)),
		)
		return apperrors.NewFetchError("tasks", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for i := range fetched {
		t := fetched[i]
		if _, exists := s.tasks[t.ID]; exists {
			continue
		}
		s.tasks[t.ID] = &t
		s.columns[t.Status] = append(s.columns[t.Status], t.ID)
		added++
	}
	for _, col := range entities.TaskColumns {
		s.sortColumnLocked(col)
		s.reindexLocked(col)
	}

	s.logger.Info("Доска загружена",
		zap.Int("added", added),
		zap.Int("total", len(s.tasks)),
	)
	return nil
}

// MoveTask — оптимистичный перенос задачи в колонку dest на позицию
// destIndex. Отклоняется сразу, если по задаче уже висит мутация.
func (s *BoardService) MoveTask(taskID uint64, dest entities.TaskStatus, destIndex int) error {
	status := string(dest)
	patch := dto.UpdateTaskDTO{Status: &status}
	if err := s.validate.Struct(patch); err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.pending[taskID]; exists {
		s.mu.Unlock()
		return apperrors.ErrMutationPending
	}
	t, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return apperrors.ErrTaskNotFound
	}

	snap := boardSnapshot{task: *t, index: s.indexInLocked(t.Status, taskID)}
	s.pending[taskID] = speculative.Begin(snap)

	// Синхронное применение: убрать из исходной колонки, вставить
	// в целевую; статус следует за колонкой.
	s.removeFromColumnLocked(t.Status, taskID)
	s.insertIntoColumnLocked(dest, taskID, destIndex)
	src := t.Status
	t.Status = dest
	s.reindexLocked(src)
	s.reindexLocked(dest)
	s.mu.Unlock()

	s.logger.Debug("Оптимистичный перенос применен",
		zap.Uint64("taskId", taskID),
		zap.String("dest", status),
		zap.Int("index", destIndex),
	)

	go s.commit(taskID, patch, "Failed to move task")
	return nil
}

// RateTask — оптимистичная оценка задачи (1..5 звезд).
func (s *BoardService) RateTask(taskID uint64, stars int) error {
	patch := dto.UpdateTaskDTO{Stars: &stars}
	if err := s.validate.Struct(patch); err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.pending[taskID]; exists {
		s.mu.Unlock()
		return apperrors.ErrMutationPending
	}
	t, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return apperrors.ErrTaskNotFound
	}

	snap := boardSnapshot{task: *t, index: s.indexInLocked(t.Status, taskID)}
	s.pending[taskID] = speculative.Begin(snap)
	t.Rating = stars
	s.mu.Unlock()

	go s.commit(taskID, patch, "Failed to rate task")
	return nil
}

// OnAuthoritativeUpdate — авторитетное обновление задачи с сервера
// (push или refetch). Пока по задаче висит мутация, обновление
// буферизуется и применяется после ее разрешения: иначе оно могло бы
// затереть in-flight изменение устаревшими данными или сгонки с откатом.
func (s *BoardService) OnAuthoritativeUpdate(task entities.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pending[task.ID]; exists {
		t := task
		s.buffered[task.ID] = &t
		s.logger.Debug("Авторитетное обновление буферизовано до разрешения мутации",
			zap.Uint64("taskId", task.ID),
		)
		return
	}
	s.applyAuthoritativeLocked(task)
}

// BoardState — снимок доски для вьюхи: id -> {статус, позиция, рейтинг}.
func (s *BoardService) BoardState() map[uint64]entities.TaskView {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uint64]entities.TaskView, len(s.tasks))
	for id, t := range s.tasks {
		out[id] = entities.TaskView{
			Status:   t.Status,
			Position: s.indexInLocked(t.Status, id),
			Rating:   t.Rating,
		}
	}
	return out
}

func (s *BoardService) HasPending(taskID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.pending[taskID]
	return exists
}

// commit отправляет PATCH и разрешает мутацию по результату.
func (s *BoardService) commit(taskID uint64, patch dto.UpdateTaskDTO, failMessage string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := s.repo.Update(ctx, taskID, patch)
	s.resolve(taskID, err, failMessage)
}

func (s *BoardService) resolve(taskID uint64, commitErr error, failMessage string) {
	s.mu.Lock()
	txn, exists := s.pending[taskID]
	if !exists {
		s.mu.Unlock()
		return
	}
	delete(s.pending, taskID)

	if commitErr == nil {
		// Локальное состояние теперь считается авторитетным до
		// следующего серверного обновления.
		txn.Commit()
	} else if snap, ok := txn.Rollback(); ok {
		s.restoreLocked(snap)
	}

	// Буферизованное авторитетное обновление применяется после
	// разрешения — и после commit, и после отката сервер прав.
	if buf, ok := s.buffered[taskID]; ok {
		delete(s.buffered, taskID)
		s.applyAuthoritativeLocked(*buf)
	}
	onResolved := s.onResolved
	s.mu.Unlock()

	if commitErr != nil {
		s.logger.Warn("Commit мутации отклонен, состояние откачено",
			zap.Error(apperrors.NewCommitError(taskID, commitErr)),
		)
		s.notifyErr(failMessage)
	}
	if onResolved != nil {
		onResolved(taskID, commitErr == nil)
	}
}

// restoreLocked возвращает задачу ровно в состояние снимка:
// та же колонка, тот же индекс, тот же статус и рейтинг.
func (s *BoardService) restoreLocked(snap boardSnapshot) {
	t, ok := s.tasks[snap.task.ID]
	if !ok {
		return
	}
	s.removeFromColumnLocked(t.Status, snap.task.ID)
	*t = snap.task
	s.insertIntoColumnLocked(snap.task.Status, snap.task.ID, snap.index)
	for _, col := range entities.TaskColumns {
		s.reindexLocked(col)
	}
}

func (s *BoardService) applyAuthoritativeLocked(task entities.Task) {
	if existing, ok := s.tasks[task.ID]; ok {
		s.removeFromColumnLocked(existing.Status, task.ID)
		*existing = task
	} else {
		t := task
		s.tasks[task.ID] = &t
	}
	s.insertIntoColumnLocked(task.Status, task.ID, task.ColumnPosition)
	for _, col := range entities.TaskColumns {
		s.reindexLocked(col)
	}
}

func (s *BoardService) indexInLocked(col entities.TaskStatus, taskID uint64) int {
	for i, id := range s.columns[col] {
		if id == taskID {
			return i
		}
	}
	return -1
}

func (s *BoardService) removeFromColumnLocked(col entities.TaskStatus, taskID uint64) {
	ids := s.columns[col]
	for i, id := range ids {
		if id == taskID {
			s.columns[col] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

func (s *BoardService) insertIntoColumnLocked(col entities.TaskStatus, taskID uint64, index int) {
	ids := s.columns[col]
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	ids = append(ids, 0)
	copy(ids[index+1:], ids[index:])
	ids[index] = taskID
	s.columns[col] = ids
}

func (s *BoardService) sortColumnLocked(col entities.TaskStatus) {
	ids := s.columns[col]
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && s.tasks[ids[j]].ColumnPosition < s.tasks[ids[j-1]].ColumnPosition; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

// reindexLocked пересчитывает ColumnPosition по фактическому порядку.
func (s *BoardService) reindexLocked(col entities.TaskStatus) {
	for i, id := range s.columns[col] {
		s.tasks[id].ColumnPosition = i
	}
}
