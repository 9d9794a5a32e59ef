package server

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kspeckhals01/browser-tab-manager/internal/entitlement"
	apperrors "github.com/kspeckhals01/browser-tab-manager/internal/errors"
	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

// handlerFunc answers one request type. The returned payload becomes the
// body of the ".result" reply.
type handlerFunc func(s *Server, ctx context.Context, st Storage, raw json.RawMessage) (interface{}, error)

var handlers = map[MessageType]handlerFunc{
	MessageTypeSessionsList:    handleSessionsList,
	MessageTypeSessionsCount:   handleSessionsCount,
	MessageTypeSessionsSave:    handleSessionsSave,
	MessageTypeSessionsDelete:  handleSessionsDelete,
	MessageTypeGroupsList:      handleGroupsList,
	MessageTypeGroupsCount:     handleGroupsCount,
	MessageTypeGroupsSave:      handleGroupsSave,
	MessageTypeGroupsDelete:    handleGroupsDelete,
	MessageTypeGroupsRename:    handleGroupsRename,
	MessageTypeGroupsRemoveTab: handleGroupsRemoveTab,
	MessageTypeProfileGet:      handleProfileGet,
	MessageTypeTierGet:         handleTierGet,
}

// handle resolves a fresh Storage for req and replies with the result.
func (c *Client) handle(req request) {
	h, ok := handlers[req.Type]
	if !ok {
		c.replyError(req.ID, apperrors.New(apperrors.CodeBridgeHandlerMissing,
			fmt.Sprintf("no handler for message type %q", req.Type)))
		return
	}

	st, err := c.server.storage(c.ctx)
	if err != nil {
		c.logger.Error("failed to open storage", zap.String("type", string(req.Type)), zap.Error(err))
		c.replyError(req.ID, err)
		return
	}

	payload, err := h(c.server, c.ctx, st, req.Payload)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("type", string(req.Type)),
			zap.String("code", apperrors.GetCode(err)),
			zap.Error(err))
		c.replyError(req.ID, err)
		return
	}
	c.reply(newResultMessage(req, payload))
}

// decode unmarshals a required request payload.
func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, apperrors.InvalidMessage("payload is required")
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, apperrors.InvalidMessage(fmt.Sprintf("invalid payload: %v", err))
	}
	return v, nil
}

func handleSessionsList(_ *Server, ctx context.Context, st Storage, _ json.RawMessage) (interface{}, error) {
	sessions, err := st.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []model.SavedSession{}
	}
	return SessionsPayload{Sessions: sessions}, nil
}

func handleSessionsCount(_ *Server, ctx context.Context, st Storage, _ json.RawMessage) (interface{}, error) {
	n, err := st.SessionCount(ctx)
	if err != nil {
		return nil, err
	}
	return CountPayload{Count: n}, nil
}

func handleSessionsSave(_ *Server, ctx context.Context, st Storage, raw json.RawMessage) (interface{}, error) {
	p, err := decode[SavePayload](raw)
	if err != nil {
		return nil, err
	}
	result, err := st.SaveSession(ctx, p.Name, p.Tabs)
	if err != nil {
		return nil, err
	}
	return ResultPayload{Result: result}, nil
}

func handleSessionsDelete(_ *Server, ctx context.Context, st Storage, raw json.RawMessage) (interface{}, error) {
	p, err := decode[NamePayload](raw)
	if err != nil {
		return nil, err
	}
	result, err := st.DeleteSession(ctx, p.Name)
	if err != nil {
		return nil, err
	}
	return ResultPayload{Result: result}, nil
}

func handleGroupsList(_ *Server, ctx context.Context, st Storage, _ json.RawMessage) (interface{}, error) {
	groups, err := st.Groups(ctx)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []model.TabGroup{}
	}
	return GroupsPayload{Groups: groups}, nil
}

func handleGroupsCount(_ *Server, ctx context.Context, st Storage, _ json.RawMessage) (interface{}, error) {
	n, err := st.GroupCount(ctx)
	if err != nil {
		return nil, err
	}
	return CountPayload{Count: n}, nil
}

// handleGroupsSave enforces the free group quota before saving; the adapter
// leaves that check to its callers.
func handleGroupsSave(_ *Server, ctx context.Context, st Storage, raw json.RawMessage) (interface{}, error) {
	p, err := decode[SavePayload](raw)
	if err != nil {
		return nil, err
	}
	reached, err := st.GroupQuotaReached(ctx)
	if err != nil {
		return nil, err
	}
	if reached {
		return ResultPayload{Result: model.ResultLimit}, nil
	}
	result, err := st.SaveGroup(ctx, p.Name, p.Tabs)
	if err != nil {
		return nil, err
	}
	return ResultPayload{Result: result}, nil
}

func handleGroupsDelete(_ *Server, ctx context.Context, st Storage, raw json.RawMessage) (interface{}, error) {
	p, err := decode[NamePayload](raw)
	if err != nil {
		return nil, err
	}
	result, err := st.DeleteGroup(ctx, p.Name)
	if err != nil {
		return nil, err
	}
	return ResultPayload{Result: result}, nil
}

func handleGroupsRename(_ *Server, ctx context.Context, st Storage, raw json.RawMessage) (interface{}, error) {
	p, err := decode[RenamePayload](raw)
	if err != nil {
		return nil, err
	}
	result, err := st.RenameGroup(ctx, p.OldName, p.NewName)
	if err != nil {
		return nil, err
	}
	return ResultPayload{Result: result}, nil
}

func handleGroupsRemoveTab(_ *Server, ctx context.Context, st Storage, raw json.RawMessage) (interface{}, error) {
	p, err := decode[RemoveTabPayload](raw)
	if err != nil {
		return nil, err
	}
	if p.TabID == nil {
		return nil, apperrors.InvalidMessage("tab_id is required")
	}
	tabs, result, err := st.RemoveTabFromGroup(ctx, p.Group, *p.TabID)
	if err != nil {
		return nil, err
	}
	if result == model.ResultNotFound {
		return ResultPayload{Result: result}, nil
	}
	if tabs == nil {
		tabs = []model.Tab{}
	}
	return ResultPayload{Result: result, Tabs: tabs}, nil
}

func handleProfileGet(_ *Server, ctx context.Context, st Storage, _ json.RawMessage) (interface{}, error) {
	p, err := st.UserProfile(ctx)
	if err != nil {
		return nil, err
	}
	return ProfilePayload{Profile: p}, nil
}

func handleTierGet(s *Server, _ context.Context, st Storage, _ json.RawMessage) (interface{}, error) {
	state := st.State()
	out := TierPayload{Tier: state.Tier, Email: state.Email}
	if state.Profile != nil {
		now := s.now()
		end := entitlement.ActiveWindowEnd(state.Profile.TrialEndsAt, state.Profile.SubscriptionEndsAt, now)
		if days, ok := entitlement.DaysRemaining(end, now); ok {
			out.DaysRemaining = &days
		}
	}
	return out, nil
}
