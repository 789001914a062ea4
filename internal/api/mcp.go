package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/studyd/internal/session"
	"github.com/kalambet/studyd/internal/syllabus"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Session *session.Session
	Version string
}

// NewMCPServer creates an MCP server exposing the study session as tools and
// resources.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"studyd",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("studyd: talk to the study planner, run focus sessions, track project milestones and plan exams."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("send_message",
			mcp.WithDescription("Send a message to the study planner and return its reply."),
			mcp.WithString("message", mcp.Description("Message text"), mcp.Required()),
		),
		mcpSendMessage(deps),
	)

	s.AddTool(
		mcp.NewTool("timer_status",
			mcp.WithDescription("Show the focus timer: mode, time left, phase and subject."),
		),
		mcpTimerStatus(deps),
	)

	s.AddTool(
		mcp.NewTool("start_focus",
			mcp.WithDescription("Start or resume the focus timer."),
			mcp.WithString("subject", mcp.Description("Subject the session is recorded under")),
			mcp.WithNumber("minutes", mcp.Description("Reset the timer to this many minutes before starting")),
		),
		mcpStartFocus(deps),
	)

	s.AddTool(
		mcp.NewTool("pause_timer",
			mcp.WithDescription("Pause the focus timer."),
		),
		mcpPauseTimer(deps),
	)

	s.AddTool(
		mcp.NewTool("toggle_milestone",
			mcp.WithDescription("Mark a milestone of a project as done or not done."),
			mcp.WithNumber("index", mcp.Description("Zero-based milestone index"), mcp.Required()),
			mcp.WithString("project_id", mcp.Description("Project to select first; defaults to the active project")),
		),
		mcpToggleMilestone(deps),
	)

	s.AddTool(
		mcp.NewTool("register_session",
			mcp.WithDescription("Register a study session that already happened."),
			mcp.WithString("subject", mcp.Description("Subject studied"), mcp.Required()),
			mcp.WithNumber("hours", mcp.Description("Hours studied (default 1)")),
			mcp.WithNumber("energy", mcp.Description("Energy level 1-5")),
			mcp.WithString("difficulty", mcp.Description("baja, media or alta")),
			mcp.WithString("goal_met", mcp.Description("Whether the goal was met: sí, parcial or no")),
		),
		mcpRegisterSession(deps),
	)

	s.AddTool(
		mcp.NewTool("plan_exams",
			mcp.WithDescription("Generate a study plan for upcoming exams."),
			mcp.WithString("exams", mcp.Description("JSON array of exams: {materia, fecha, hora, duracion, temas, dificultad, formato, confianza}"), mcp.Required()),
			mcp.WithBoolean("crisis", mcp.Description("Plan in crisis mode (exams are very close)")),
			mcp.WithString("syllabus", mcp.Description("Path to a syllabus PDF whose topics fill the first exam's temas")),
		),
		mcpPlanExams(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"session://transcript",
			"Transcript",
			mcp.WithResourceDescription("Conversation with the study planner"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResource(func() any { return deps.Session.Transcript() }),
	)

	s.AddResource(
		mcp.NewResource(
			"session://profile",
			"Study Profile",
			mcp.WithResourceDescription("Planning preferences of the user"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResource(func() any { return deps.Session.Profile() }),
	)

	s.AddResource(
		mcp.NewResource(
			"session://projects",
			"Projects",
			mcp.WithResourceDescription("Projects with their milestones and progress"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResource(func() any { return deps.Session.Projects() }),
	)

	return s
}

func mcpSendMessage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		msg, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}
		if err := deps.Session.Say(ctx, msg); err != nil {
			return mcpError(fmt.Sprintf("send failed: %v", err)), nil
		}
		transcript := deps.Session.Transcript()
		if len(transcript) == 0 {
			return mcpText(""), nil
		}
		return mcpText(transcript[len(transcript)-1].Text), nil
	}
}

func mcpTimerStatus(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcpText(timerLine(deps.Session.Timer())), nil
	}
}

func mcpStartFocus(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if subject := req.GetString("subject", ""); subject != "" {
			deps.Session.SetTimerSubject(subject)
		}
		if minutes := req.GetInt("minutes", 0); minutes > 0 {
			if err := deps.Session.ResetTimer(minutes); err != nil {
				return mcpError(err.Error()), nil
			}
		}
		if err := deps.Session.StartTimer(); err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(timerLine(deps.Session.Timer())), nil
	}
}

func mcpPauseTimer(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		deps.Session.PauseTimer()
		return mcpText(timerLine(deps.Session.Timer())), nil
	}
}

func mcpToggleMilestone(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		index := req.GetInt("index", -1)
		if index < 0 {
			return mcpError("index is required"), nil
		}

		if id := req.GetString("project_id", ""); id != "" {
			err := deps.Session.SelectProject(id)
			if errors.Is(err, session.ErrProjectNotFound) {
				if err := deps.Session.LoadProjects(ctx); err != nil {
					return mcpError(fmt.Sprintf("loading projects: %v", err)), nil
				}
				err = deps.Session.SelectProject(id)
			}
			if err != nil {
				return mcpError(err.Error()), nil
			}
		}

		before, ok := deps.Session.ActiveProject()
		if !ok {
			return mcpError("no project selected"), nil
		}
		if index >= len(before.Milestones) {
			return mcpError(fmt.Sprintf("project %s has %d milestones", before.Name, len(before.Milestones))), nil
		}
		if err := deps.Session.ToggleMilestone(ctx, index); err != nil {
			return mcpError(fmt.Sprintf("toggle failed: %v", err)), nil
		}

		p, _ := deps.Session.ActiveProject()
		m := p.Milestones[index]
		state := "open"
		if m.Completed {
			state = "done"
		}
		return mcpText(fmt.Sprintf("%s: %q is %s, progress %d%%", p.Name, m.Title, state, p.Progress)), nil
	}
}

func mcpRegisterSession(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		subject, err := req.RequireString("subject")
		if err != nil {
			return mcpError("subject is required"), nil
		}

		form := deps.Session.Checkin().Form
		form.Subject = subject
		form.Hours = req.GetFloat("hours", form.Hours)
		form.Energy = req.GetInt("energy", form.Energy)
		form.Difficulty = req.GetString("difficulty", form.Difficulty)
		form.GoalMet = req.GetString("goal_met", form.GoalMet)
		deps.Session.StageCheckin(form)

		if err := deps.Session.RegisterSession(ctx); err != nil {
			return mcpError(fmt.Sprintf("register failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Registered %.1f h of %s", form.Hours, subject)), nil
	}
}

// mcpPlanExams drives the exam planner: one row per exam, each starting
// from the planner's row defaults.
func mcpPlanExams(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		examsJSON, err := req.RequireString("exams")
		if err != nil {
			return mcpError("exams is required"), nil
		}
		var raws []json.RawMessage
		if err := json.Unmarshal([]byte(examsJSON), &raws); err != nil {
			return mcpError(fmt.Sprintf("invalid exams JSON: %v", err)), nil
		}
		if len(raws) == 0 {
			return mcpError("exams must not be empty"), nil
		}

		var topics string
		if path := req.GetString("syllabus", ""); path != "" {
			topics, err = syllabus.TopicsFromFile(path, syllabus.DefaultMaxTopics)
			if err != nil {
				return mcpError(fmt.Sprintf("reading syllabus: %v", err)), nil
			}
		}

		s := deps.Session
		s.OpenExams()
		for range raws[1:] {
			s.AddExamRow()
		}
		rows := s.Exams().Rows
		for i, raw := range raws {
			item := rows[i]
			if err := json.Unmarshal(raw, &item); err != nil {
				s.CloseExams()
				return mcpError(fmt.Sprintf("invalid exam %d: %v", i, err)), nil
			}
			if i == 0 && topics != "" && item.Topics == "" {
				item.Topics = topics
			}
			if err := s.UpdateExamRow(i, item); err != nil {
				s.CloseExams()
				return mcpError(fmt.Sprintf("exam %d: %v", i, err)), nil
			}
		}
		s.SetCrisisMode(req.GetBool("crisis", false))

		plan, err := s.SubmitExams(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("planning failed: %v", err)), nil
		}
		if plan == nil {
			return mcpError("the planner was closed before the plan arrived"), nil
		}
		return mcpText(plan.Text), nil
	}
}

func mcpResource(read func() any) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(read())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", req.Params.URI, err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func timerLine(t session.TimerState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s)", t.Mode, t, t.Phase)
	if t.Subject != "" {
		fmt.Fprintf(&b, " on %s", t.Subject)
	}
	return b.String()
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
