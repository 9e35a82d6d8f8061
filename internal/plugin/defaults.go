package plugin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/beacon/internal/action"
)

const searchPageSize = 5

// Default returns the baseline bundle every session gets: clock access,
// history retrieval and model introspection.
func Default() Bundle {
	return Bundle{
		Name: "default",
		Actions: []action.Action{
			getCurrentTime(),
			getMessage(),
			searchChatHistory(),
			getBotModel(),
			changeBotModel(),
		},
	}
}

func getCurrentTime() action.Action {
	return action.Action{
		Doc: action.Doc{
			Name:        "get_current_time",
			Description: "Get the current date and time.",
			Parameters:  action.ObjectSchema(nil),
		},
		Invoke: func(ctx context.Context, actx *action.Context, args action.Params) (any, error) {
			return map[string]any{
				"status": action.StatusSuccess,
				"time":   now().Format(time.RFC1123),
			}, nil
		},
	}
}

func getMessage() action.Action {
	return action.Action{
		Doc: action.Doc{
			Name:        "get_message",
			Description: "Retrieve the full content of an earlier message by its id. Use this when a message in the history has been replaced by a placeholder.",
			Parameters: action.ObjectSchema(map[string]action.Property{
				"id": {Type: "integer", Description: "id of the message to retrieve"},
			}, "id"),
		},
		Invoke: func(ctx context.Context, actx *action.Context, args action.Params) (any, error) {
			id, ok := args.Int("id")
			if !ok {
				return nil, errors.New("id is required")
			}
			if actx.Turns == nil {
				return nil, errors.New("history is not available in this session")
			}
			turn, err := actx.Turns.Get(ctx, actx.SessionID, int64(id))
			if err != nil {
				return nil, fmt.Errorf("message %d not found", id)
			}
			return map[string]any{
				"status":  action.StatusSuccess,
				"id":      turn.ID,
				"role":    turn.Role,
				"content": turn.Content,
			}, nil
		},
	}
}

func searchChatHistory() action.Action {
	return action.Action{
		Doc: action.Doc{
			Name:        "search_chat_history",
			Description: "Search earlier messages of this conversation by keyword. Results are paginated, newest first.",
			Parameters: action.ObjectSchema(map[string]action.Property{
				"keyword": {Type: "string", Description: "text to look for"},
				"page":    {Type: "integer", Description: "result page, starting at 1"},
			}, "keyword"),
		},
		Invoke: func(ctx context.Context, actx *action.Context, args action.Params) (any, error) {
			keyword := args.String("keyword")
			if keyword == "" {
				return nil, errors.New("keyword is required")
			}
			if actx.Turns == nil {
				return nil, errors.New("history is not available in this session")
			}
			page, ok := args.Int("page")
			if !ok || page < 1 {
				page = 1
			}
			turns, total, err := actx.Turns.Search(ctx, actx.SessionID, keyword, searchPageSize, (page-1)*searchPageSize)
			if err != nil {
				return nil, fmt.Errorf("search failed: %w", err)
			}
			matches := make([]map[string]any, 0, len(turns))
			for _, t := range turns {
				matches = append(matches, map[string]any{
					"id":      t.ID,
					"role":    t.Role,
					"content": t.Content,
				})
			}
			return map[string]any{
				"status":  action.StatusSuccess,
				"total":   total,
				"page":    page,
				"matches": matches,
			}, nil
		},
	}
}

func getBotModel() action.Action {
	return action.Action{
		Doc: action.Doc{
			Name:        "get_bot_model",
			Description: "Get the model currently serving this conversation.",
			Parameters:  action.ObjectSchema(nil),
		},
		Invoke: func(ctx context.Context, actx *action.Context, args action.Params) (any, error) {
			return map[string]any{
				"status": action.StatusSuccess,
				"model":  actx.Model,
			}, nil
		},
	}
}

func changeBotModel() action.Action {
	return action.Action{
		Doc: action.Doc{
			Name:        "change_bot_model",
			Description: "Switch this conversation to a different model. Only administrators may do this.",
			Parameters: action.ObjectSchema(map[string]action.Property{
				"model": {Type: "string", Description: "name of the model to switch to"},
			}, "model"),
		},
		Invoke: func(ctx context.Context, actx *action.Context, args action.Params) (any, error) {
			model := args.String("model")
			if model == "" {
				return nil, errors.New("model is required")
			}
			if err := requireAdmin(ctx, actx); err != nil {
				return nil, err
			}
			if actx.SetModel == nil {
				return nil, errors.New("model switching is not available in this session")
			}
			if err := actx.SetModel(model); err != nil {
				return nil, err
			}
			return map[string]any{
				"status": action.StatusSuccess,
				"model":  model,
			}, nil
		},
	}
}

func requireAdmin(ctx context.Context, actx *action.Context) error {
	if actx.Senders == nil || actx.SenderID == "" {
		return errors.New("only administrators may do this")
	}
	sender, err := actx.Senders.Get(ctx, actx.SenderID)
	if err != nil || sender == nil || !sender.IsAdmin {
		return errors.New("only administrators may do this")
	}
	return nil
}
