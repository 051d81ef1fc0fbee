package pipeline

import (
	"context"
	"fmt"
	"strings"

	"farewatch/internal/fare"
	"farewatch/internal/storage"
	"farewatch/internal/transport"
	logx "farewatch/pkg/logx"
)

// deliver sends one message and audits the attempt. label names the
// route(s) in the audit record. A failure is logged and returned; it is
// never retried.
func (p *Pipeline) deliver(ctx context.Context, r *run, log logx.Logger, text, label string, c fare.CalendarCandidate) error {
	ref, err := p.sender.SendText(ctx, p.cfg.Target, text, &transport.SendOptions{
		ParseMode:      transport.ParseModeMarkdown,
		DisablePreview: p.cfg.DisablePreview,
	})

	rec := storage.DeliveryRecord{
		RunID:    r.id,
		At:       p.now(),
		Route:    label,
		Outbound: c.Outbound,
		Return:   c.Return,
	}
	if !c.Price.IsZero() {
		rec.Price = c.Price.StringFixed(2)
	}

	if err != nil {
		r.report.SendFailed++
		rec.Error = err.Error()
		p.audit(ctx, log, rec)
		log.Error("notification failed", logx.String("date", c.Outbound), logx.Err(err))
		return err
	}
	r.report.Sent++
	rec.MessageID = ref.MessageID
	p.audit(ctx, log, rec)
	log.Info("notification sent", logx.String("date", c.Outbound), logx.Int("message_id", ref.MessageID))
	return nil
}

func (p *Pipeline) audit(ctx context.Context, log logx.Logger, rec storage.DeliveryRecord) {
	if p.rec == nil {
		return
	}
	if err := p.rec.AppendDelivery(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn("delivery audit failed", logx.Err(err))
	}
}

// flushBatch sends the offers collected during the run as one message.
// Nothing is sent when no offer matched.
func (p *Pipeline) flushBatch(ctx context.Context, r *run) {
	if len(r.pending) == 0 {
		r.log.Info("no offers to send")
		return
	}
	text := p.cfg.Formatter.FormatBatch(r.pending)
	routes := make([]string, 0, len(r.pending))
	seen := map[string]bool{}
	for _, o := range r.pending {
		if k := o.Route.String(); !seen[k] {
			seen[k] = true
			routes = append(routes, k)
		}
	}
	log := r.log.With(logx.Int("offers", len(r.pending)))
	if err := p.deliver(ctx, r, log, text, strings.Join(routes, ","), fare.CalendarCandidate{}); err != nil {
		r.report.Errors = append(r.report.Errors, fmt.Errorf("batched %s: %w", fare.StageNotify, err))
	}
	r.pending = nil
}
