// Файл: internal/services/chat_service_test.go
package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"company-management/internal/dto"
	"company-management/internal/entities"
	appsync "company-management/internal/sync"
	apperrors "company-management/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChatRepo struct {
	history map[entities.PairKey][]entities.ChatMessage
	err     error
	calls   int
}

func (r *fakeChatRepo) GetHistory(ctx context.Context, selfID, peerID string) ([]entities.ChatMessage, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.history[entities.NewPairKey(selfID, peerID)], nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []struct {
		Destination string
		Body        interface{}
	}
	err error
}

func (p *fakePublisher) Publish(destination string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, struct {
		Destination string
		Body        interface{}
	}{destination, body})
	return nil
}

const (
	chatSelf = "alice@economit.io"
	chatPeer = "bob@economit.io"
)

func newChatServiceForTest(repo *fakeChatRepo, pub *fakePublisher) (*ChatService, *appsync.MemoryDedup) {
	dedup := appsync.NewMemoryDedup(0, zap.NewNop())
	svc := NewChatService(chatSelf, repo, pub, dedup,
		appsync.MessagesTopic(chatSelf), zap.NewNop())
	return svc, dedup
}

func chatMsg(id uint64, from, to, content string, at time.Time) entities.ChatMessage {
	return entities.ChatMessage{ID: id, SenderID: from, RecipientID: to, Content: content, Timestamp: at}
}

func TestChatSetActivePeerLoadsHistory(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := &fakeChatRepo{history: map[entities.PairKey][]entities.ChatMessage{
		entities.NewPairKey(chatSelf, chatPeer): {
			chatMsg(2, chatPeer, chatSelf, "вторая", base.Add(time.Minute)),
			chatMsg(1, chatSelf, chatPeer, "первая", base),
		},
	}}
	svc, dedup := newChatServiceForTest(repo, &fakePublisher{})

	require.NoError(t, svc.SetActivePeer(context.Background(), chatPeer))
	assert.Equal(t, chatPeer, svc.ActivePeer())

	transcript := svc.Transcript(chatPeer)
	require.Len(t, transcript, 2)
	// По возрастанию времени, независимо от порядка ответа сервера.
	assert.Equal(t, uint64(1), transcript[0].ID)
	assert.Equal(t, uint64(2), transcript[1].ID)

	// История помечена "виденной": эхо этих сообщений будет подавлено.
	assert.True(t, dedup.Seen(appsync.MessagesTopic(chatSelf), appsync.MessageEventID(1)))
}

func TestChatSetActivePeerTwiceNoDuplicates(t *testing.T) {
	base := time.Now().UTC()
	repo := &fakeChatRepo{history: map[entities.PairKey][]entities.ChatMessage{
		entities.NewPairKey(chatSelf, chatPeer): {chatMsg(1, chatSelf, chatPeer, "hi", base)},
	}}
	svc, _ := newChatServiceForTest(repo, &fakePublisher{})

	require.NoError(t, svc.SetActivePeer(context.Background(), chatPeer))
	require.NoError(t, svc.SetActivePeer(context.Background(), chatPeer))

	assert.Len(t, svc.Transcript(chatPeer), 1)
	assert.Equal(t, 2, repo.calls)
}

func TestChatSetActivePeerFetchFailure(t *testing.T) {
	repo := &fakeChatRepo{err: errors.New("502")}
	svc, _ := newChatServiceForTest(repo, &fakePublisher{})

	err := svc.SetActivePeer(context.Background(), chatPeer)
	require.Error(t, err)

	var ferr *apperrors.FetchError
	assert.ErrorAs(t, err, &ferr)
	// Собеседник все равно переключен, живой канал продолжит наполнять пару.
	assert.Equal(t, chatPeer, svc.ActivePeer())
	assert.Empty(t, svc.Transcript(chatPeer))
}

func TestChatInactivePairIsBufferedNotDropped(t *testing.T) {
	svc, _ := newChatServiceForTest(&fakeChatRepo{}, &fakePublisher{})
	other := "carol@economit.io"

	// Сообщение пары, которая сейчас не на экране.
	svc.OnPush(pushEvent(t, "t", "message-5",
		chatMsg(5, other, chatSelf, "привет из другой пары", time.Now())))

	assert.Empty(t, svc.Transcript(chatPeer))
	require.Len(t, svc.Transcript(other), 1)
}

func TestChatForeignPairDropped(t *testing.T) {
	svc, _ := newChatServiceForTest(&fakeChatRepo{}, &fakePublisher{})

	svc.OnPush(pushEvent(t, "t", "message-9",
		chatMsg(9, "carol@economit.io", "dave@economit.io", "не для нас", time.Now())))

	assert.Empty(t, svc.Transcript("carol@economit.io"))
	assert.Empty(t, svc.Transcript("dave@economit.io"))
}

func TestChatEchoDuplicateByIDIgnored(t *testing.T) {
	svc, _ := newChatServiceForTest(&fakeChatRepo{}, &fakePublisher{})
	at := time.Now().UTC()

	svc.OnPush(pushEvent(t, "t", "message-7", chatMsg(7, chatSelf, chatPeer, "раз", at)))
	svc.OnPush(pushEvent(t, "t", "message-7", chatMsg(7, chatSelf, chatPeer, "раз", at)))

	assert.Len(t, svc.Transcript(chatPeer), 1)
}

func TestChatSendPublishesWithoutID(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newChatServiceForTest(&fakeChatRepo{}, pub)

	require.NoError(t, svc.Send(chatPeer, "Привет!"))

	require.Len(t, pub.published, 1)
	assert.Equal(t, appsync.ChatDestination, pub.published[0].Destination)

	sent, ok := pub.published[0].Body.(dto.SendChatMessageDTO)
	require.True(t, ok)
	assert.Equal(t, chatSelf, sent.SenderID)
	assert.Equal(t, chatPeer, sent.RecipientID)
	assert.Equal(t, "Привет!", sent.Content)
	assert.False(t, sent.Timestamp.IsZero())

	// До эха по подписке транскрипт не меняется — отправка fire-and-forget.
	assert.Empty(t, svc.Transcript(chatPeer))
}

func TestChatSendFallsBackToActivePeer(t *testing.T) {
	pub := &fakePublisher{}
	repo := &fakeChatRepo{history: map[entities.PairKey][]entities.ChatMessage{}}
	svc, _ := newChatServiceForTest(repo, pub)

	require.NoError(t, svc.SetActivePeer(context.Background(), chatPeer))
	require.NoError(t, svc.Send("", "адресат из контекста"))

	require.Len(t, pub.published, 1)
	sent := pub.published[0].Body.(dto.SendChatMessageDTO)
	assert.Equal(t, chatPeer, sent.RecipientID)
}

func TestChatSendValidation(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newChatServiceForTest(&fakeChatRepo{}, pub)

	// Нет собеседника вовсе.
	assert.ErrorIs(t, svc.Send("", "текст"), apperrors.ErrNoActivePeer)
	// Пустое содержимое.
	assert.Error(t, svc.Send(chatPeer, ""))
	// Адресат — не email.
	assert.Error(t, svc.Send("not-an-email", "текст"))

	assert.Empty(t, pub.published)
}

func TestChatSendPublishFailurePropagates(t *testing.T) {
	pub := &fakePublisher{err: apperrors.ErrNotConnected}
	svc, _ := newChatServiceForTest(&fakeChatRepo{}, pub)

	assert.ErrorIs(t, svc.Send(chatPeer, "текст"), apperrors.ErrNotConnected)
}
