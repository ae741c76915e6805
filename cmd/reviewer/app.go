package main

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"tg-reviewer/internal/adapters/console"
	"tg-reviewer/internal/domain"
	"tg-reviewer/internal/usecase/review"
)

var errNothingToReview = errors.New("нет выбранных бесед")

type app struct {
	gateway  domain.Gateway
	history  domain.HistoryStore
	review   *review.Service
	display  *console.Display
	prompter *console.Prompter
	log      zerolog.Logger
	opts     options
}

// run выполняется внутри авторизованной сессии.
func (a *app) run(ctx context.Context) error {
	a.display.AppHeader()

	convs, err := a.selectConversations(ctx)
	if err != nil {
		return err
	}
	window, err := a.opts.window(time.Now())
	if err != nil {
		return err
	}

	runOpts := review.Options{
		Limit:         a.opts.limit,
		TopK:          a.opts.top,
		SkipReplicate: a.opts.noReplicate,
		OnAnalysis: func(conv domain.Conversation, res *domain.AnalysisResult) {
			a.display.Analysis(conv.Title, res, a.opts.top)
		},
	}
	for i, conv := range convs {
		a.display.Processing(i+1, len(convs), conv)
		report, err := a.review.Run(ctx, conv, window, runOpts)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			a.log.Warn().Err(err).Int64("conversation", conv.ID).Msg("reviewer: обзор завершился с ошибкой")
		}
		if report.Analysis == nil {
			a.display.Empty(conv.Title)
			continue
		}
		if report.Replication != nil {
			var repErr error
			if report.ReplicateErr != "" {
				repErr = errors.New(report.ReplicateErr)
			}
			a.display.Replication(*report.Replication, repErr)
		}
	}
	a.display.Finished()
	return nil
}

// selectConversations выбирает беседы: по --chat, из истории или вручную из списка.
func (a *app) selectConversations(ctx context.Context) ([]domain.Conversation, error) {
	if len(a.opts.chatIDs) > 0 {
		return a.resolve(ctx, a.opts.chatIDs)
	}

	refs, err := a.history.Load(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("reviewer: не удалось прочитать историю")
	}
	if len(refs) > 0 && a.opts.useHistory != "no" {
		use := a.opts.useHistory == "yes"
		if !use {
			a.display.History(refs)
			if use, err = a.prompter.Confirm(ctx, "是否要使用上次選擇的群組進行分析？"); err != nil {
				return nil, err
			}
		}
		if use {
			ids := make([]int64, 0, len(refs))
			for _, r := range refs {
				ids = append(ids, r.ID)
			}
			convs, err := a.resolve(ctx, ids)
			if err == nil {
				return convs, nil
			}
			a.log.Warn().Err(err).Msg("reviewer: беседы из истории недоступны, переходим к выбору")
		}
	}

	all, err := a.gateway.ListConversations(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, errNothingToReview
	}
	a.display.Conversations(all)
	idx, err := a.prompter.SelectIndexes(ctx, len(all))
	if err != nil {
		return nil, err
	}
	selected := make([]domain.Conversation, 0, len(idx))
	saved := make([]domain.ConversationRef, 0, len(idx))
	for _, i := range idx {
		selected = append(selected, all[i])
		saved = append(saved, domain.ConversationRef{ID: all[i].ID, Name: all[i].Title, Type: all[i].Kind})
	}
	if err := a.history.Save(ctx, saved); err != nil {
		a.log.Warn().Err(err).Msg("reviewer: не удалось сохранить историю")
	}
	return selected, nil
}

func (a *app) resolve(ctx context.Context, ids []int64) ([]domain.Conversation, error) {
	convs := make([]domain.Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := a.gateway.ResolveConversation(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.log.Warn().Err(err).Int64("conversation", id).Msg("reviewer: беседа недоступна")
			continue
		}
		convs = append(convs, conv)
	}
	if len(convs) == 0 {
		return nil, errNothingToReview
	}
	return convs, nil
}
