// Файл: pkg/speculative/txn.go

// Пакет speculative — маленькая переиспользуемая абстракция
// "спекулятивной транзакции": снимок локального состояния, мгновенное
// применение изменения и последующий commit либо точный откат.
// Не привязан к форме состояния — доска задач использует его для
// drag-and-drop, но подойдет любому оптимистичному UI-изменению.
package speculative

// Txn хранит снимок состояния, сделанный до спекулятивного изменения.
// Жизненный цикл: Begin -> (Commit | Rollback), ровно один раз.
type Txn[S any] struct {
	snapshot S
	resolved bool
}

// Begin фиксирует снимок. Снимок должен быть глубокой копией:
// Txn его не копирует сам, чтобы не навязывать форму состояния.
func Begin[S any](snapshot S) *Txn[S] {
	return &Txn[S]{snapshot: snapshot}
}

// Commit подтверждает изменение: снимок больше не нужен.
// Возвращает false, если транзакция уже была завершена.
func (t *Txn[S]) Commit() bool {
	if t.resolved {
		return false
	}
	t.resolved = true
	return true
}

// Rollback возвращает сохранённый снимок для точного восстановления.
// ok == false означает, что транзакция уже была завершена и снимок
// применять нельзя.
func (t *Txn[S]) Rollback() (snapshot S, ok bool) {
	if t.resolved {
		var zero S
		return zero, false
	}
	t.resolved = true
	return t.snapshot, true
}

// Resolved сообщает, завершена ли транзакция (commit или rollback).
func (t *Txn[S]) Resolved() bool {
	return t.resolved
}
