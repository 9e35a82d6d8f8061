package plugin

import (
	"context"
	"errors"

	"github.com/soyeahso/beacon/internal/action"
	"github.com/soyeahso/beacon/internal/domain"
	"github.com/soyeahso/beacon/internal/middleware"
)

// DefaultUserInfoInterval is how many user messages pass between
// profile refresh cycles.
const DefaultUserInfoInterval = 8

// EventUserInfo is emitted when a profile refresh cycle starts.
const EventUserInfo domain.EventType = "user-info"

const userInfoReminder = "Summarize everything you have learned about the user from the " +
	"conversation so far (interests, preferences, facts about their life) and store it by " +
	"calling update_user_info. Merge with what get_user_info already returns instead of " +
	"discarding it. Do not mention this bookkeeping to the user and do not reply to them " +
	"in this turn."

// UserInfo returns the profile-memory bundle: actions to read and
// write a persistent per-sender profile, plus a middleware that
// periodically asks the model to refresh it. interval <= 0 selects the
// default.
func UserInfo(interval int) Bundle {
	if interval <= 0 {
		interval = DefaultUserInfoInterval
	}
	return Bundle{
		Name:        "user-info",
		Actions:     []action.Action{getUserInfo(), updateUserInfo()},
		Middlewares: []middleware.Middleware{&userInfoReminderMW{interval: interval}},
	}
}

func getUserInfo() action.Action {
	return action.Action{
		Doc: action.Doc{
			Name:        "get_user_info",
			Description: "Get the stored profile of the user you are talking to.",
			Parameters:  action.ObjectSchema(nil),
		},
		Invoke: func(ctx context.Context, actx *action.Context, args action.Params) (any, error) {
			if actx.Senders == nil || actx.SenderID == "" {
				return nil, errors.New("no sender in this session")
			}
			sender, err := actx.Senders.Get(ctx, actx.SenderID)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"status": action.StatusSuccess,
				"name":   sender.Name,
				"info":   sender.Info,
			}, nil
		},
	}
}

func updateUserInfo() action.Action {
	return action.Action{
		Doc: action.Doc{
			Name:        "update_user_info",
			Description: "Replace the stored profile of the user you are talking to. Pass the full profile text, not a diff.",
			Parameters: action.ObjectSchema(map[string]action.Property{
				"info": {Type: "string", Description: "the new profile text"},
			}, "info"),
		},
		Invoke: func(ctx context.Context, actx *action.Context, args action.Params) (any, error) {
			if actx.Senders == nil || actx.SenderID == "" {
				return nil, errors.New("no sender in this session")
			}
			info := args.String("info")
			if info == "" {
				return nil, errors.New("info is required")
			}
			if err := actx.Senders.SaveInfo(ctx, actx.SenderID, info); err != nil {
				return nil, err
			}
			return nil, nil
		},
	}
}

// userInfoReminderMW counts user messages and, every interval-th one,
// turns that cycle into a silent profile refresh: a system instruction
// is persisted and the cycle's reply events are suppressed, including
// the continuation cycles of any tool calls the refresh makes.
type userInfoReminderMW struct {
	middleware.Base
	interval  int
	userTurns int
	updating  bool
}

func (m *userInfoReminderMW) PreProcess(ctx context.Context, input *domain.Input, cause middleware.Cause, s middleware.Surface) (*middleware.PreResult, error) {
	if cause == middleware.CauseFunction {
		if m.updating {
			return &middleware.PreResult{SuppressReply: true}, nil
		}
		return nil, nil
	}
	if input == nil {
		return nil, nil
	}
	m.userTurns++
	if m.userTurns < m.interval {
		return nil, nil
	}
	m.userTurns = 0
	m.updating = true
	if err := s.CreateSystemTurn(ctx, userInfoReminder); err != nil {
		m.updating = false
		return nil, err
	}
	return &middleware.PreResult{
		Event:         &domain.Event{Type: EventUserInfo, Content: "updating user profile"},
		SuppressReply: true,
	}, nil
}

func (m *userInfoReminderMW) PostProcess(ctx context.Context, input *domain.Input, cause middleware.Cause, s middleware.Surface) error {
	m.updating = false
	return nil
}
