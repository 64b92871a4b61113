package commands

import (
	"context"

	"todoapp/internal/app"
	"todoapp/internal/domain"
	"todoapp/internal/tasks"
)

// mountTasks mounts a task synchronizer and waits for its first delivery.
// The caller must Unmount the returned synchronizer.
func mountTasks(ctx context.Context, env *Env, a *app.App) (*tasks.Synchronizer, []domain.Task, error) {
	s := a.Tasks()
	s.Mount()

	waitCtx, cancel := context.WithTimeout(ctx, env.Config.APITimeout)
	defer cancel()
	list, err := s.Wait(waitCtx)
	if err != nil {
		s.Unmount()
		return nil, nil, err
	}
	return s, list, nil
}
