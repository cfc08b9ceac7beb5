// Package autoplay drives a seat without a human, acting only on what the
// eligibility resolver allows.
package autoplay

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"poker-table-client/config"
	"poker-table-client/session"
	"poker-table-client/table"
)

// Player is the part of a session the autopilot needs.
type Player interface {
	View() session.View
	Updates() <-chan struct{}
	Act(action table.Action, amount int) error
}

// Decide picks an action from e. ok is false when nothing is eligible.
// Raises are always the minimum raise.
func Decide(e table.Eligibility, rnd *rand.Rand, params config.AutoplayParams) (action table.Action, amount int, ok bool) {
	if !e.Any() {
		return "", 0, false
	}
	if e.CanRaise && rnd.Intn(100) < clampChance(params.RaiseChance) {
		amount = e.MinRaiseAmount
		if amount <= 0 {
			amount = 1
		}
		if e.ValidateRaise(amount) == nil {
			return table.ActionRaise, amount, true
		}
	}
	switch {
	case e.CanCheck:
		return table.ActionCheck, 0, true
	case e.CanCall && rnd.Intn(100) >= clampChance(params.FoldChance):
		return table.ActionCall, 0, true
	case e.CanFold:
		return table.ActionFold, 0, true
	}
	return "", 0, false
}

func clampChance(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// Run acts at most once per snapshot revision until ctx is done. A think
// delay between DelayMinMS and DelayMaxMS precedes each action; if the
// snapshot moves on during the delay the decision is made again.
func Run(ctx context.Context, p Player, params config.AutoplayParams, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("tag", "autoplay")
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	updates := p.Updates()
	var acted uint64

	for {
		v := p.View()
		if v.Eligibility.Any() && v.Snapshot.Revision != acted {
			if !sleep(ctx, thinkDelay(rnd, params)) {
				return
			}
			if now := p.View(); now.Snapshot.Revision != v.Snapshot.Revision {
				continue
			}
			action, amount, ok := Decide(v.Eligibility, rnd, params)
			if ok {
				if err := p.Act(action, amount); err != nil {
					log.Warn("action failed", "action", string(action), "err", err)
				} else {
					log.Info("acted", "action", string(action), "amount", amount, "pot", v.Snapshot.Pot)
				}
			}
			acted = v.Snapshot.Revision
		}

		select {
		case <-ctx.Done():
			return
		case <-updates:
		}
	}
}

func thinkDelay(rnd *rand.Rand, params config.AutoplayParams) time.Duration {
	delayMS := params.DelayMinMS
	if params.DelayMaxMS > params.DelayMinMS {
		delayMS = params.DelayMinMS + rnd.Intn(params.DelayMaxMS-params.DelayMinMS)
	}
	if delayMS < 0 {
		delayMS = 0
	}
	return time.Duration(delayMS) * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
