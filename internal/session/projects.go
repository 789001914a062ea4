package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/studyd/internal/study"
)

// Projects returns a deep copy of the project list.
func (s *Session) Projects() []study.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectsLocked()
}

// ActiveProject returns the selected project, if any.
func (s *Session) ActiveProject() (study.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.activeProjectLocked(); p != nil {
		return p.Clone(), true
	}
	return study.Project{}, false
}

// OpenProjects clears the selection and reloads the list.
func (s *Session) OpenProjects(ctx context.Context) error {
	s.mu.Lock()
	s.activeProjectID = ""
	s.mu.Unlock()
	return s.LoadProjects(ctx)
}

// LoadProjects replaces the project list with the backend's. The selection
// survives only if the selected project is still listed. On failure the
// local list is kept as is.
func (s *Session) LoadProjects(ctx context.Context) error {
	epoch := s.currentEpoch()
	projects, err := s.backend.ListProjects(ctx)
	if err != nil {
		return wrapBackend("loading projects", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil
	}
	s.projects = make([]study.Project, len(projects))
	for i, p := range projects {
		p.Progress = study.Progress(p.Milestones)
		s.projects[i] = p
	}
	if s.activeProjectLocked() == nil {
		s.activeProjectID = ""
	}
	return nil
}

// CreateProject asks the backend to create a project from d and reloads
// the list.
func (s *Session) CreateProject(ctx context.Context, d study.ProjectDraft) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return ErrNameRequired
	}
	p, err := s.backend.CreateProject(ctx, d)
	if err != nil {
		return wrapBackend("creating project", err)
	}
	s.logger.Info("project created", "id", p.ID, "name", d.Name)
	return s.LoadProjects(ctx)
}

// SelectProject makes the project with the given id active.
func (s *Session) SelectProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.ID == id {
			s.activeProjectID = id
			return nil
		}
	}
	return ErrProjectNotFound
}

// ToggleMilestone flips milestone index of the active project, recomputes
// its progress, and submits the full milestone list. The local change is
// kept even if the submission fails. Completing a milestone awards
// experience and is announced in the conversation. Without an active
// project, or with an index out of range, it does nothing.
func (s *Session) ToggleMilestone(ctx context.Context, index int) error {
	s.mu.Lock()
	p := s.activeProjectLocked()
	if p == nil || index < 0 || index >= len(p.Milestones) {
		s.mu.Unlock()
		return nil
	}
	m := &p.Milestones[index]
	m.Completed = !m.Completed
	completed := m.Completed
	title := m.Title
	p.Progress = study.Progress(p.Milestones)
	id, name := p.ID, p.Name
	ms := study.CloneMilestones(p.Milestones)
	epoch := s.epoch
	s.mu.Unlock()

	if err := s.backend.UpdateMilestones(ctx, id, ms); err != nil {
		return wrapBackend("saving milestones", err)
	}
	if !completed {
		return nil
	}

	// Another toggle or a reload may have landed while the call was out.
	s.mu.Lock()
	progress, still := s.milestoneDoneLocked(id, index, title)
	stale := s.epoch != epoch || !still
	s.mu.Unlock()
	if stale {
		s.logger.Debug("milestone completion superseded", "project", id, "index", index)
		return nil
	}

	s.award(ctx, "milestone_completed", XPMilestone)
	s.PostSystemEvent(study.ChatTurn{
		Role: study.RoleAssistant,
		Text: fmt.Sprintf("✅ Milestone %q of %s completed. Progress: %d%%.", title, name, progress),
	})
	return nil
}

// DeleteProject removes a project after the user has confirmed it, clears
// the selection, and reloads the list.
func (s *Session) DeleteProject(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := s.backend.DeleteProject(ctx, id); err != nil {
		return wrapBackend("deleting project", err)
	}
	s.mu.Lock()
	s.activeProjectID = ""
	s.mu.Unlock()
	return s.LoadProjects(ctx)
}

// milestoneDoneLocked reports whether milestone index of project id is still
// the titled one and still completed, with the project's current progress.
func (s *Session) milestoneDoneLocked(id string, index int, title string) (int, bool) {
	for i := range s.projects {
		p := &s.projects[i]
		if p.ID != id {
			continue
		}
		if index >= len(p.Milestones) {
			return 0, false
		}
		m := p.Milestones[index]
		return p.Progress, m.Completed && m.Title == title
	}
	return 0, false
}

func (s *Session) activeProjectLocked() *study.Project {
	if s.activeProjectID == "" {
		return nil
	}
	for i := range s.projects {
		if s.projects[i].ID == s.activeProjectID {
			return &s.projects[i]
		}
	}
	return nil
}

func (s *Session) projectsLocked() []study.Project {
	out := make([]study.Project, len(s.projects))
	for i, p := range s.projects {
		out[i] = p.Clone()
	}
	return out
}
