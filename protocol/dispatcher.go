// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/gosteem/log"
	"github.com/blinklabs-io/gosteem/stream"
	"github.com/blinklabs-io/gosteem/transport"
	"github.com/goccy/go-json"
	"golang.org/x/sync/semaphore"
)

type callResult struct {
	result json.RawMessage
	err    error
}

// pendingRequest is owned by the dispatcher from enqueue until it is resolved,
// failed or abandoned by its caller
type pendingRequest struct {
	id         uint64
	issuedAt   uint64
	request    *Request
	payload    []byte
	ctx        context.Context
	resultChan chan callResult
	// admitted is set while the request holds an in-flight slot
	admitted bool
	// sent is set once the request may be matched by a response
	sent   bool
	sentAt time.Time
}

// DispatcherStats is a snapshot of the dispatcher counters
type DispatcherStats struct {
	RequestsSent        uint64
	ResponsesMatched    uint64
	ProtocolErrors      uint64
	TransportErrors     uint64
	StaleResponses      uint64
	MismatchedResponses uint64
	InvalidResponses    uint64
	Timeouts            uint64
	Abandoned           uint64
	InFlight            int
	PeakInFlight        int
	Pending             int
}

type dispatcherCounters struct {
	requestsSent        atomic.Uint64
	responsesMatched    atomic.Uint64
	protocolErrors      atomic.Uint64
	transportErrors     atomic.Uint64
	staleResponses      atomic.Uint64
	mismatchedResponses atomic.Uint64
	invalidResponses    atomic.Uint64
	timeouts            atomic.Uint64
	abandoned           atomic.Uint64
}

// Dispatcher assigns request ids, limits the number of requests awaiting a
// response, writes requests to the connection in call order and matches
// inbound responses back to their callers.
//
// Admission uses a FIFO semaphore: requests are admitted in the order the
// write loop reaches them, and at most MaxInFlight requests await a response
// at any time.
type Dispatcher struct {
	config       DispatcherConfig
	conn         transport.Conn
	apis         *APIRegistry
	logger       log.Logger
	metrics      *Metrics
	admission    *semaphore.Weighted
	inFlight     atomic.Int64
	peakInFlight atomic.Int64
	counters     dispatcherCounters
	pendingMutex sync.Mutex
	pending      map[uint64]*pendingRequest
	nextId       uint64
	issueSeq     uint64
	sendQueue    chan *pendingRequest
	inboundSub   *stream.Subscription
	ctx          context.Context
	cancel       context.CancelFunc
	stopMutex    sync.Mutex
	stopErr      error
	onceStop     sync.Once
	waitGroup    sync.WaitGroup
}

// NewDispatcher returns a running Dispatcher on top of the provided connection
func NewDispatcher(conn transport.Conn, cfg *DispatcherConfig) *Dispatcher {
	if cfg == nil {
		tmpCfg := NewDispatcherConfig()
		cfg = &tmpCfg
	}
	// Apply defaults for zero values to handle DispatcherConfig{} created without NewDispatcherConfig()
	config := *cfg
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = DefaultMaxInFlight
	}
	if config.SendQueueSize <= 0 {
		config.SendQueueSize = DefaultSendQueueSize
	}
	if config.InitialRequestId == 0 {
		config.InitialRequestId = DefaultInitialRequestId
	}
	if config.APIIds == nil {
		config.APIIds = DefaultAPIIds()
	}
	if config.Logger == nil {
		config.Logger = log.NewNopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = NopMetrics()
	}
	d := &Dispatcher{
		config:    config,
		conn:      conn,
		apis:      NewAPIRegistry(config.APIIds),
		logger:    config.Logger.With("component", "dispatcher"),
		metrics:   config.Metrics,
		admission: semaphore.NewWeighted(int64(config.MaxInFlight)),
		pending:   make(map[uint64]*pendingRequest),
		nextId:    config.InitialRequestId,
		sendQueue: make(chan *pendingRequest, config.SendQueueSize),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.inboundSub = conn.Subscribe(d.handleMessage)
	d.waitGroup.Add(2)
	go d.writeLoop()
	go d.monitorConnection()
	return d
}

// APIs returns the API name registry used to resolve API ids
func (d *Dispatcher) APIs() *APIRegistry {
	return d.apis
}

// MaxInFlight returns the in-flight request cap
func (d *Dispatcher) MaxInFlight() int {
	return d.config.MaxInFlight
}

// InFlight returns the number of requests currently awaiting a response
func (d *Dispatcher) InFlight() int {
	return int(d.inFlight.Load())
}

// DoneChan returns a channel that is closed when the dispatcher stops
func (d *Dispatcher) DoneChan() <-chan struct{} {
	return d.ctx.Done()
}

// Err returns the reason the dispatcher stopped, or nil while it is running
func (d *Dispatcher) Err() error {
	d.stopMutex.Lock()
	defer d.stopMutex.Unlock()
	return d.stopErr
}

// Stats returns a snapshot of the dispatcher counters
func (d *Dispatcher) Stats() DispatcherStats {
	d.pendingMutex.Lock()
	pending := len(d.pending)
	d.pendingMutex.Unlock()
	return DispatcherStats{
		RequestsSent:        d.counters.requestsSent.Load(),
		ResponsesMatched:    d.counters.responsesMatched.Load(),
		ProtocolErrors:      d.counters.protocolErrors.Load(),
		TransportErrors:     d.counters.transportErrors.Load(),
		StaleResponses:      d.counters.staleResponses.Load(),
		MismatchedResponses: d.counters.mismatchedResponses.Load(),
		InvalidResponses:    d.counters.invalidResponses.Load(),
		Timeouts:            d.counters.timeouts.Load(),
		Abandoned:           d.counters.abandoned.Load(),
		InFlight:            int(d.inFlight.Load()),
		PeakInFlight:        int(d.peakInFlight.Load()),
		Pending:             pending,
	}
}

// Send calls api.method with positional params and waits for the result
func (d *Dispatcher) Send(
	ctx context.Context,
	api string,
	method string,
	params ...any,
) (json.RawMessage, error) {
	return d.SendRequest(ctx, &Request{API: api, Method: method, Params: params})
}

// SendRequest sends the request and waits for its result. A non-zero
// Request.Id is used as the request identity instead of the next counter value
func (d *Dispatcher) SendRequest(ctx context.Context, req *Request) (json.RawMessage, error) {
	entry, err := d.enqueue(ctx, req)
	if err != nil {
		return nil, err
	}
	return d.wait(ctx, entry)
}

// Stop fails every pending request and stops the dispatcher. It does not
// close the underlying connection
func (d *Dispatcher) Stop() {
	d.shutdown(nil)
	d.waitGroup.Wait()
}

func (d *Dispatcher) stoppedError() error {
	d.stopMutex.Lock()
	defer d.stopMutex.Unlock()
	if d.stopErr == nil {
		return nil
	}
	return &TransportError{Err: d.stopErr}
}

func (d *Dispatcher) enqueue(ctx context.Context, req *Request) (*pendingRequest, error) {
	if err := d.stoppedError(); err != nil {
		return nil, err
	}
	apiId, ok := d.apis.Resolve(req.API)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedAPI, req.API)
	}
	entry := &pendingRequest{
		request:    req,
		ctx:        ctx,
		resultChan: make(chan callResult, 1),
	}
	d.pendingMutex.Lock()
	if req.Id != 0 {
		if _, exists := d.pending[req.Id]; exists {
			d.pendingMutex.Unlock()
			return nil, fmt.Errorf("%w: %d", ErrDuplicateRequestId, req.Id)
		}
		entry.id = req.Id
	} else {
		// Skip over any explicit ids that are still pending
		for {
			id := d.nextId
			d.nextId++
			if _, exists := d.pending[id]; !exists {
				entry.id = id
				break
			}
		}
	}
	d.issueSeq++
	entry.issuedAt = d.issueSeq
	d.pending[entry.id] = entry
	d.pendingMutex.Unlock()

	payload, err := EncodeRequest(entry.id, apiId, req.Method, req.Params)
	if err != nil {
		d.finish(entry, callResult{})
		<-entry.resultChan
		return nil, fmt.Errorf("encode %s: %w", req, err)
	}
	entry.payload = payload

	select {
	case d.sendQueue <- entry:
		return entry, nil
	case <-ctx.Done():
		res := d.abandon(entry, ctx.Err())
		return nil, res.err
	case <-d.ctx.Done():
		res := d.abandon(entry, d.stoppedError())
		return nil, res.err
	}
}

func (d *Dispatcher) wait(ctx context.Context, entry *pendingRequest) (json.RawMessage, error) {
	var timeoutChan <-chan time.Time
	if d.config.RequestTimeout > 0 {
		timer := time.NewTimer(d.config.RequestTimeout)
		defer timer.Stop()
		timeoutChan = timer.C
	}
	var res callResult
	select {
	case res = <-entry.resultChan:
	case <-ctx.Done():
		res = d.abandon(entry, ctx.Err())
	case <-timeoutChan:
		err := fmt.Errorf(
			"%w: %s id %d after %s",
			ErrRequestTimeout,
			entry.request,
			entry.id,
			d.config.RequestTimeout,
		)
		res = d.abandon(entry, err)
		if errors.Is(res.err, ErrRequestTimeout) {
			d.counters.timeouts.Add(1)
			d.metrics.Timeouts.Add(1)
		}
	case <-d.ctx.Done():
		res = d.abandon(entry, d.stoppedError())
	}
	return res.result, res.err
}

// abandon removes a request whose caller stopped waiting. If the request was
// resolved concurrently, that result wins
func (d *Dispatcher) abandon(entry *pendingRequest, err error) callResult {
	if d.finish(entry, callResult{err: err}) {
		d.counters.abandoned.Add(1)
		d.logger.Debug(
			"abandoned request",
			"id", entry.id,
			"method", entry.request.String(),
			"error", err,
		)
	}
	return <-entry.resultChan
}

// finish removes a pending request and delivers its result. It returns false
// if the request was already resolved by someone else
func (d *Dispatcher) finish(entry *pendingRequest, res callResult) bool {
	d.pendingMutex.Lock()
	ok := d.removeLocked(entry)
	d.pendingMutex.Unlock()
	if !ok {
		return false
	}
	entry.resultChan <- res
	return true
}

// removeLocked deletes the pending entry and gives back its in-flight slot.
// Removal happens at most once per entry, so the slot is released exactly once
func (d *Dispatcher) removeLocked(entry *pendingRequest) bool {
	if cur, ok := d.pending[entry.id]; !ok || cur != entry {
		return false
	}
	delete(d.pending, entry.id)
	if entry.admitted {
		entry.admitted = false
		d.admission.Release(1)
		d.metrics.InFlight.Set(float64(d.inFlight.Add(-1)))
	}
	return true
}

func (d *Dispatcher) isPending(entry *pendingRequest) bool {
	d.pendingMutex.Lock()
	defer d.pendingMutex.Unlock()
	cur, ok := d.pending[entry.id]
	return ok && cur == entry
}

// The dispatcher ensures that requests reach the connection in the order they
// were enqueued by executing all admissions and writes from this goroutine
func (d *Dispatcher) writeLoop() {
	defer d.waitGroup.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case entry := <-d.sendQueue:
			d.transmit(entry)
		}
	}
}

func (d *Dispatcher) transmit(entry *pendingRequest) {
	// Skip requests whose caller has already given up
	if !d.isPending(entry) {
		return
	}
	waitStart := time.Now()
	acquireCtx, cancel := context.WithCancel(entry.ctx)
	stopAfter := context.AfterFunc(d.ctx, cancel)
	err := d.admission.Acquire(acquireCtx, 1)
	stopAfter()
	cancel()
	if err != nil {
		// The waiting caller observes the same cancellation and cleans up
		return
	}
	d.metrics.AdmissionWaitSeconds.Observe(time.Since(waitStart).Seconds())

	d.pendingMutex.Lock()
	if cur, ok := d.pending[entry.id]; !ok || cur != entry {
		d.pendingMutex.Unlock()
		d.admission.Release(1)
		return
	}
	entry.admitted = true
	inFlight := d.inFlight.Add(1)
	for {
		peak := d.peakInFlight.Load()
		if inFlight <= peak || d.peakInFlight.CompareAndSwap(peak, inFlight) {
			break
		}
	}
	entry.sent = true
	entry.sentAt = time.Now()
	d.pendingMutex.Unlock()
	d.metrics.InFlight.Set(float64(inFlight))

	if err := d.conn.Send(entry.ctx, entry.payload); err != nil {
		if d.finish(entry, callResult{err: &TransportError{Err: err}}) {
			d.counters.transportErrors.Add(1)
			d.metrics.TransportErrors.Add(1)
		}
		d.logger.Error(
			"failed to send request",
			"id", entry.id,
			"method", entry.request.String(),
			"error", err,
		)
		return
	}
	d.counters.requestsSent.Add(1)
	d.metrics.RequestsSent.With("method", entry.request.String()).Add(1)
	d.logger.Debug(
		"sent request",
		"id", entry.id,
		"method", entry.request.String(),
		"in_flight", inFlight,
	)
}

// handleMessage runs on the connection's read loop for every inbound message
func (d *Dispatcher) handleMessage(data []byte) {
	resp, err := DecodeResponse(data)
	if err != nil {
		d.counters.invalidResponses.Add(1)
		d.metrics.InvalidResponses.Add(1)
		d.logger.Error("dropped invalid inbound message", "error", err)
		return
	}
	d.pendingMutex.Lock()
	entry, ok := d.pending[resp.Id]
	if !ok || !entry.sent {
		unmatchedErr := d.classifyLocked(resp.Id)
		d.pendingMutex.Unlock()
		d.reportUnmatched(unmatchedErr)
		return
	}
	d.removeLocked(entry)
	d.pendingMutex.Unlock()

	method := entry.request.String()
	d.counters.responsesMatched.Add(1)
	d.metrics.ResponsesMatched.With("method", method).Add(1)
	d.metrics.RequestDurationSeconds.With("method", method).Observe(
		time.Since(entry.sentAt).Seconds(),
	)
	if resp.Error != nil {
		d.counters.protocolErrors.Add(1)
		d.metrics.ProtocolErrors.With("method", method).Add(1)
		entry.resultChan <- callResult{
			err: &ProtocolError{
				Id:      entry.id,
				API:     entry.request.API,
				Method:  entry.request.Method,
				Code:    resp.Error.Code,
				Message: resp.Error.Message,
				Data:    resp.Error.Data,
			},
		}
		return
	}
	entry.resultChan <- callResult{result: resp.Result}
}

// classifyLocked decides whether an unclaimed response is stale (older than
// every request awaiting a response) or mismatched
func (d *Dispatcher) classifyLocked(id uint64) error {
	var oldest uint64
	for pendingId, entry := range d.pending {
		if entry.sent && (oldest == 0 || pendingId < oldest) {
			oldest = pendingId
		}
	}
	if oldest != 0 {
		if id < oldest {
			return &StaleResponseError{Id: id, OldestPending: oldest}
		}
		return &MismatchedResponseError{Id: id}
	}
	if id < d.nextId {
		return &StaleResponseError{Id: id}
	}
	return &MismatchedResponseError{Id: id}
}

func (d *Dispatcher) reportUnmatched(err error) {
	var staleErr *StaleResponseError
	if errors.As(err, &staleErr) {
		d.counters.staleResponses.Add(1)
		d.metrics.StaleResponses.Add(1)
	} else {
		d.counters.mismatchedResponses.Add(1)
		d.metrics.MismatchedResponses.Add(1)
	}
	d.logger.Debug("dropped unmatched response", "error", err)
	if d.config.UnmatchedResponseFunc != nil {
		d.config.UnmatchedResponseFunc(err)
	}
}

func (d *Dispatcher) monitorConnection() {
	defer d.waitGroup.Done()
	select {
	case <-d.ctx.Done():
	case <-d.conn.DoneChan():
		cause := d.conn.Err()
		if cause == nil {
			cause = transport.ErrConnectionClosed
		}
		d.logger.Error("connection lost", "error", cause)
		d.shutdown(cause)
	}
}

// shutdown stops the dispatcher and fails every pending request with a
// *TransportError wrapping cause
func (d *Dispatcher) shutdown(cause error) {
	d.onceStop.Do(func() {
		d.stopMutex.Lock()
		if cause == nil {
			d.stopErr = ErrDispatcherStopped
		} else {
			d.stopErr = fmt.Errorf("%w: %w", ErrDispatcherStopped, cause)
		}
		d.stopMutex.Unlock()
		if cause == nil {
			cause = ErrDispatcherStopped
		}
		d.inboundSub.Unsubscribe()
		d.failAll(&TransportError{Err: cause})
		d.cancel()
	})
}

func (d *Dispatcher) failAll(err error) {
	d.pendingMutex.Lock()
	entries := make([]*pendingRequest, 0, len(d.pending))
	for _, entry := range d.pending {
		entries = append(entries, entry)
	}
	for _, entry := range entries {
		d.removeLocked(entry)
	}
	d.pendingMutex.Unlock()
	for _, entry := range entries {
		d.counters.transportErrors.Add(1)
		d.metrics.TransportErrors.Add(1)
		entry.resultChan <- callResult{err: err}
	}
	if len(entries) > 0 {
		d.logger.Error("failed pending requests", "count", len(entries), "error", err)
	}
}
