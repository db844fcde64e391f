package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/SherClockHolmes/webpush-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"maintenance-backend/internal/model"
	"maintenance-backend/internal/projection"
	"maintenance-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// LogSender only logs what would be pushed.
type LogSender struct{}

func (s *LogSender) Send(payload []byte, sub *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
	log.WithField("endpoint", sub.Endpoint).Infof("dry run: %s", payload)
	return &http.Response{StatusCode: http.StatusCreated, Body: http.NoBody}, nil
}

// Alert is the set of components of one unit that need attention.
type Alert struct {
	EquipmentID   int64
	EquipmentName string
	Items         []projection.ScheduleItem

	// delivered runs once at least one subscriber accepted the push.
	delivered func()
}

func (a Alert) markDelivered() {
	if a.delivered != nil {
		a.delivered()
	}
}

// Payload is the JSON body delivered to the browser.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
}

// Stats counts delivery outcomes.
type Stats struct {
	Sent    int64
	Failed  int64
	Expired int64
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Alert
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	limiter *rate.Limiter
	wg      sync.WaitGroup

	sent, failed, expired atomic.Int64
}

// NewWorkerPool creates a new worker pool. A nil limiter means no throttling.
func NewWorkerPool(size int, st store.Store, webpushOptions *webpush.Options, limiter *rate.Limiter) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Alert, size), // Buffered channel
		store:   st,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		limiter: limiter,
	}
}

// WithSender replaces the sender.
func (wp *WorkerPool) WithSender(s NotificationSender) *WorkerPool {
	wp.sender = s
	return wp
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log.WithField("worker", id).Debug("worker started")
	for {
		select {
		case alert, ok := <-wp.jobs:
			if !ok {
				return
			}
			log.WithFields(log.Fields{"worker": id, "equipment_id": alert.EquipmentID}).Debug("processing alert")
			wp.sendNotificationsForEquipment(ctx, alert)
		case <-ctx.Done():
			log.WithField("worker", id).Debug("worker shutting down")
			return
		}
	}
}

// Dispatch queues an alert for the workers. It must not be called after Close.
// It gives up with the context error once ctx is done.
func (wp *WorkerPool) Dispatch(ctx context.Context, alert Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case wp.jobs <- alert:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs; workers exit once the queue is drained.
func (wp *WorkerPool) Close() {
	close(wp.jobs)
}

// Wait blocks until every worker has exited.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Stats returns the delivery counters so far.
func (wp *WorkerPool) Stats() Stats {
	return Stats{Sent: wp.sent.Load(), Failed: wp.failed.Load(), Expired: wp.expired.Load()}
}

// BuildPayload renders an alert into the push message.
func BuildPayload(alert Alert) Payload {
	parts := make([]string, 0, len(alert.Items))
	overdue := 0
	for _, item := range alert.Items {
		if item.Status == projection.StatusOverdue {
			overdue++
			parts = append(parts, fmt.Sprintf("%s overdue by %.0f h", item.Component, item.OverdueBy()))
		} else {
			parts = append(parts, fmt.Sprintf("%s due in %.0f h", item.Component, item.HoursRemaining))
		}
	}

	title := fmt.Sprintf("%s: %d component(s) due soon", alert.EquipmentName, len(alert.Items))
	if overdue > 0 {
		title = fmt.Sprintf("%s: %d component(s) overdue", alert.EquipmentName, overdue)
	}
	return Payload{
		Title: title,
		Body:  strings.Join(parts, "; "),
		Tag:   fmt.Sprintf("equipment-%d", alert.EquipmentID),
	}
}

// sendNotificationsForEquipment fetches subscriptions and sends notifications for a given unit.
func (wp *WorkerPool) sendNotificationsForEquipment(ctx context.Context, alert Alert) {
	subscriptions, err := wp.store.SubscriptionsForEquipment(ctx, alert.EquipmentID)
	if err != nil {
		log.WithError(err).WithField("equipment_id", alert.EquipmentID).Error("failed to fetch subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(BuildPayload(alert))
	if err != nil {
		log.WithError(err).Error("failed to encode alert payload")
		return
	}

	log.WithFields(log.Fields{
		"equipment_id":  alert.EquipmentID,
		"subscriptions": len(subscriptions),
	}).Info("sending maintenance alerts")
	delivered := false
	for _, sub := range subscriptions {
		if wp.sendNotification(ctx, sub, payload) {
			delivered = true
		}
	}
	if delivered {
		alert.markDelivered()
	}
}

// sendNotification sends a single web push notification and reports whether it was accepted.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) bool {
	if err := wp.limiter.Wait(ctx); err != nil {
		wp.failed.Add(1)
		return false
	}

	// Manually construct the webpush.Subscription object
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.failed.Add(1)
		log.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to send notification")
		return false
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.expired.Add(1)
		log.WithField("endpoint", sub.Endpoint).Info("subscription expired, deleting")
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to delete expired subscription")
		}
		return false
	}
	if resp.StatusCode >= 400 {
		wp.failed.Add(1)
		log.WithFields(log.Fields{"endpoint": sub.Endpoint, "status": resp.StatusCode}).Warn("push service rejected notification")
		return false
	}
	wp.sent.Add(1)
	return true
}
