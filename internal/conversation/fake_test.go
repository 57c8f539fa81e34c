// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"sync"

	"github.com/jeranaias/patentchat/internal/gateway"
	"github.com/jeranaias/patentchat/internal/model"
)

// fakeGateway is a scriptable gateway.Gateway. Hold channels block a call
// until closed so tests can interleave operations.
type fakeGateway struct {
	mu sync.Mutex

	histories      map[string][]model.Message
	historyErr     error
	historyHold    map[string]chan struct{}
	historyStarted chan string

	reply       gateway.Reply
	sendErr     error
	sendHold    chan struct{}
	sendStarted chan struct{}
	sendIDs     []*string

	sessions  []model.SessionSummary
	listErr   error
	listCalls int

	deleteOK bool
	deleted  []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		histories:      make(map[string][]model.Message),
		historyHold:    make(map[string]chan struct{}),
		historyStarted: make(chan string, 16),
		sendStarted:    make(chan struct{}, 16),
	}
}

func (f *fakeGateway) SendMessage(ctx context.Context, text string, sessionID *string) (gateway.Reply, error) {
	f.mu.Lock()
	f.sendIDs = append(f.sendIDs, sessionID)
	hold, reply, err := f.sendHold, f.reply, f.sendErr
	f.mu.Unlock()

	f.sendStarted <- struct{}{}
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return gateway.Reply{}, ctx.Err()
		}
	}
	if err != nil {
		return gateway.Reply{}, err
	}
	return reply, nil
}

func (f *fakeGateway) ListSessions(ctx context.Context) ([]model.SessionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return []model.SessionSummary{}, f.listErr
	}
	return model.CloneSessions(f.sessions), nil
}

func (f *fakeGateway) GetHistory(ctx context.Context, id string) ([]model.Message, error) {
	f.mu.Lock()
	hold := f.historyHold[id]
	msgs, ok := f.histories[id]
	err := f.historyErr
	f.mu.Unlock()

	f.historyStarted <- id
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return []model.Message{}, ctx.Err()
		}
	}
	if err != nil {
		return []model.Message{}, err
	}
	if !ok {
		return []model.Message{}, &gateway.Error{Kind: gateway.KindServer, Status: 404, Detail: "Session not found"}
	}
	return model.CloneMessages(msgs), nil
}

func (f *fakeGateway) DeleteSession(ctx context.Context, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteOK {
		f.deleted = append(f.deleted, id)
	}
	return f.deleteOK
}

func (f *fakeGateway) holdHistory(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.historyHold[id] = ch
	return ch
}

func (f *fakeGateway) holdSend() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendHold = make(chan struct{})
	return f.sendHold
}

func (f *fakeGateway) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}
