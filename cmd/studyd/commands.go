package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/studyd/internal/config"
	"github.com/kalambet/studyd/internal/gamify"
	"github.com/kalambet/studyd/internal/session"
	"github.com/kalambet/studyd/internal/storage"
	"github.com/kalambet/studyd/internal/study"
	"github.com/kalambet/studyd/internal/syllabus"
)

// --- chat ---

type transcript struct {
	Transcript []study.ChatTurn `json:"transcript"`
	Busy       bool             `json:"busy"`
}

var chatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Talk to the study planner, or show the conversation",
	Long: `Talk to the study planner. Without a message the whole conversation is
shown.

Examples:
  studyd chat
  studyd chat "¿Cómo organizo la semana de parciales?"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if len(args) == 0 {
			var t transcript
			if err := client.call(ctx, http.MethodGet, "/chat", nil, &t); err != nil {
				return err
			}
			if len(t.Transcript) == 0 {
				fmt.Println("No conversation yet.")
			}
			for _, turn := range t.Transcript {
				writeTurn(os.Stdout, turn)
			}
			return nil
		}

		reply, err := sendMessage(ctx, client, strings.Join(args, " "))
		if err != nil {
			return err
		}
		writeTurn(os.Stdout, reply)
		return nil
	},
}

// sendMessage posts msg and returns the turn that answered it.
func sendMessage(ctx context.Context, c *apiClient, msg string) (study.ChatTurn, error) {
	var t transcript
	if err := c.call(ctx, http.MethodPost, "/chat", map[string]string{"message": msg}, &t); err != nil {
		return study.ChatTurn{}, err
	}
	if len(t.Transcript) == 0 {
		return study.ChatTurn{}, fmt.Errorf("empty transcript after send")
	}
	return t.Transcript[len(t.Transcript)-1], nil
}

// --- timer ---

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Control the focus timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return timerAction(cmd, http.MethodGet, "/timer", nil)
	},
}

var timerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start or resume the timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		var body any
		if subject, _ := cmd.Flags().GetString("subject"); subject != "" {
			body = map[string]string{"subject": subject}
		}
		return timerAction(cmd, http.MethodPost, "/timer/start", body)
	},
}

var timerPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return timerAction(cmd, http.MethodPost, "/timer/pause", nil)
	},
}

var timerResetCmd = &cobra.Command{
	Use:   "reset <minutes>",
	Short: "Stop the timer and set it to the given minutes",
	Long:  "Stop the timer and set it to the given minutes. Up to 15 minutes is a break, more is a focus interval.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("minutes must be a number: %w", err)
		}
		return timerAction(cmd, http.MethodPost, "/timer/reset", map[string]int{"minutes": minutes})
	},
}

var timerOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Reset the timer to your preferred focus length",
	RunE: func(cmd *cobra.Command, args []string) error {
		return timerAction(cmd, http.MethodPost, "/timer/open", nil)
	},
}

var timerCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Put the timer away, pausing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return timerAction(cmd, http.MethodPost, "/timer/close", nil)
	},
}

func timerAction(cmd *cobra.Command, method, path string, body any) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	var st session.TimerState
	if err := client.call(cmd.Context(), method, path, body, &st); err != nil {
		return err
	}
	fmt.Println(formatTimer(st))
	return nil
}

func formatTimer(st session.TimerState) string {
	line := fmt.Sprintf("%s %s  %s", colorize(colorBold, string(st.Mode)), st, st.Phase)
	if st.Subject != "" {
		line += "  " + colorize(colorCyan, st.Subject)
	}
	return line
}

func init() {
	timerStartCmd.Flags().String("subject", "", "subject to record the focus session under")
	timerCmd.AddCommand(timerStartCmd, timerPauseCmd, timerResetCmd, timerOpenCmd, timerCloseCmd)
}

// --- projects ---

type projectList struct {
	Projects        []study.Project `json:"projects"`
	ActiveProjectID string          `json:"active_project_id"`
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List and manage projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectsAction(cmd, http.MethodGet, "/projects?refresh=true", nil)
	},
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project; the planner proposes its milestones",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, _ := cmd.Flags().GetString("description")
		deadline, _ := cmd.Flags().GetString("deadline")
		draft := study.ProjectDraft{
			Name:        strings.Join(args, " "),
			Description: desc,
			Deadline:    deadline,
		}
		return projectsAction(cmd, http.MethodPost, "/projects", draft)
	},
}

var projectsSelectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Make a project the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectsAction(cmd, http.MethodPost, "/projects/"+args[0]+"/select", nil)
	},
}

var projectsToggleCmd = &cobra.Command{
	Use:   "toggle <milestone>",
	Short: "Mark a milestone of the active project done or not done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := milestoneIndex(args[0])
		if err != nil {
			return err
		}
		return projectsAction(cmd, http.MethodPost, fmt.Sprintf("/projects/milestones/%d/toggle", i), nil)
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This deletes the project and its milestones. Use --confirm to proceed.")
			return nil
		}
		return projectsAction(cmd, http.MethodDelete, "/projects/"+args[0]+"?confirm=true", nil)
	},
}

// milestoneIndex turns the 1-based number shown to the user into an index.
func milestoneIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("milestone must be a number starting at 1")
	}
	return n - 1, nil
}

func projectsAction(cmd *cobra.Command, method, path string, body any) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	var list projectList
	if err := client.call(cmd.Context(), method, path, body, &list); err != nil {
		return err
	}
	printProjects(list)
	return nil
}

func printProjects(list projectList) {
	if len(list.Projects) == 0 {
		fmt.Println("No projects yet.")
		return
	}
	for _, p := range list.Projects {
		marker := " "
		if p.ID == list.ActiveProjectID {
			marker = colorize(colorGreen, "*")
		}
		fmt.Printf("%s %s  %s %s %3d%%\n", marker, colorize(colorCyan, p.ID), colorize(colorBold, p.Name), progressBar(p.Progress), p.Progress)
		if p.ID != list.ActiveProjectID {
			continue
		}
		for i, m := range p.Milestones {
			check := "[ ]"
			if m.Completed {
				check = "[x]"
			}
			fmt.Printf("    %d. %s %s", i+1, check, m.Title)
			if m.Due != "" {
				fmt.Printf("  (%s)", m.Due)
			}
			fmt.Println()
		}
	}
}

func init() {
	projectsCreateCmd.Flags().String("description", "", "what the project is about")
	projectsCreateCmd.Flags().String("deadline", "", "deadline as YYYY-MM-DD")
	projectsDeleteCmd.Flags().Bool("confirm", false, "confirm deletion")
	projectsCmd.AddCommand(projectsCreateCmd, projectsSelectCmd, projectsToggleCmd, projectsDeleteCmd)
}

// --- exams ---

var examsCmd = &cobra.Command{
	Use:   "exams",
	Short: "Plan upcoming exams",
	Long: `Plan upcoming exams. Open the planner, fill one row per exam, then submit.

Examples:
  studyd exams open
  studyd exams set 1 --subject "Cálculo" --date 2026-11-03 --confidence 40
  studyd exams syllabus 1 ./calculo.pdf
  studyd exams add
  studyd exams submit --crisis`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return examsAction(cmd, http.MethodGet, "/exams", nil)
	},
}

var examsOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Start a new set of exams",
	RunE: func(cmd *cobra.Command, args []string) error {
		return examsAction(cmd, http.MethodPost, "/exams/open", nil)
	},
}

var examsCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Dismiss the planner",
	RunE: func(cmd *cobra.Command, args []string) error {
		return examsAction(cmd, http.MethodPost, "/exams/close", nil)
	},
}

var examsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an exam row",
	RunE: func(cmd *cobra.Command, args []string) error {
		return examsAction(cmd, http.MethodPost, "/exams/rows", nil)
	},
}

var examsRemoveCmd = &cobra.Command{
	Use:   "remove <row>",
	Short: "Remove an exam row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := milestoneIndex(args[0])
		if err != nil {
			return fmt.Errorf("row must be a number starting at 1")
		}
		return examsAction(cmd, http.MethodDelete, fmt.Sprintf("/exams/rows/%d", i), nil)
	},
}

var examsSetCmd = &cobra.Command{
	Use:   "set <row>",
	Short: "Change fields of an exam row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := milestoneIndex(args[0])
		if err != nil {
			return fmt.Errorf("row must be a number starting at 1")
		}
		patch := examPatch(cmd)
		if len(patch) == 0 {
			return fmt.Errorf("nothing to change; pass at least one field flag")
		}
		return examsAction(cmd, http.MethodPatch, fmt.Sprintf("/exams/rows/%d", i), patch)
	},
}

var examsSyllabusCmd = &cobra.Command{
	Use:   "syllabus <row> <file.pdf>",
	Short: "Fill an exam's topics from a syllabus PDF",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := milestoneIndex(args[0])
		if err != nil {
			return fmt.Errorf("row must be a number starting at 1")
		}
		maxTopics, _ := cmd.Flags().GetInt("max-topics")
		topics, err := syllabus.TopicsFromFile(args[1], maxTopics)
		if err != nil {
			return err
		}
		printSuccess("Found topics: %s", topics)
		return examsAction(cmd, http.MethodPatch, fmt.Sprintf("/exams/rows/%d", i), map[string]string{"temas": topics})
	},
}

var examsSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Generate the study plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if cmd.Flags().Changed("crisis") {
			crisis, _ := cmd.Flags().GetBool("crisis")
			if err := client.call(ctx, http.MethodPost, "/exams/mode", map[string]bool{"crisis": crisis}, nil); err != nil {
				return err
			}
		}
		printStatusStep("Asking the planner for a schedule...")
		var res submitResult
		if err := client.call(ctx, http.MethodPost, "/exams/submit", nil, &res); err != nil {
			return err
		}
		if res.Plan == nil {
			printWarning("The planner was closed before the plan arrived.")
			return nil
		}
		writeTurn(os.Stdout, *res.Plan)
		if !res.Plan.HasSchedule() {
			printWarning("The planner answered without a schedule.")
		}
		return nil
	},
}

type submitResult struct {
	session.ExamsState
	Plan *study.ChatTurn `json:"plan"`
}

// examPatch collects the row fields given on the command line, keyed by
// their wire names.
func examPatch(cmd *cobra.Command) map[string]any {
	patch := map[string]any{}
	f := cmd.Flags()
	for flag, key := range map[string]string{
		"subject":    "materia",
		"date":       "fecha",
		"time":       "hora",
		"topics":     "temas",
		"difficulty": "dificultad",
		"format":     "formato",
	} {
		if f.Changed(flag) {
			v, _ := f.GetString(flag)
			patch[key] = v
		}
	}
	if f.Changed("hours") {
		v, _ := f.GetFloat64("hours")
		patch["duracion"] = v
	}
	if f.Changed("confidence") {
		v, _ := f.GetInt("confidence")
		patch["confianza"] = v
	}
	return patch
}

func examsAction(cmd *cobra.Command, method, path string, body any) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	var st session.ExamsState
	if err := client.call(cmd.Context(), method, path, body, &st); err != nil {
		return err
	}
	printExams(st)
	return nil
}

func printExams(st session.ExamsState) {
	if !st.Open {
		fmt.Println("Exam planner is closed. Run \"studyd exams open\" to start.")
		return
	}
	mode := "standard"
	if st.Crisis {
		mode = colorize(colorRed, "crisis")
	}
	fmt.Printf("Mode: %s\n", mode)
	for i, e := range st.Rows {
		subject := e.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		fmt.Printf("%d. %s  %s %s  %.1fh  %s/%s  confidence %d%%\n",
			i+1, colorize(colorBold, subject), e.Date, e.Time, e.Hours, e.Difficulty, e.Format, e.Confidence)
		if e.Topics != "" {
			fmt.Printf("   topics: %s\n", e.Topics)
		}
	}
}

func printStatusStep(msg string) {
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

func init() {
	examsSetCmd.Flags().String("subject", "", "subject")
	examsSetCmd.Flags().String("date", "", "exam date as YYYY-MM-DD")
	examsSetCmd.Flags().String("time", "", "exam time as HH:MM")
	examsSetCmd.Flags().Float64("hours", 0, "exam duration in hours")
	examsSetCmd.Flags().String("topics", "", "topics covered")
	examsSetCmd.Flags().String("difficulty", "", "Baja, Media or Alta")
	examsSetCmd.Flags().String("format", "", "exam format, e.g. Teórico or Práctico")
	examsSetCmd.Flags().Int("confidence", 0, "how ready you feel, 0-100")
	examsSyllabusCmd.Flags().Int("max-topics", syllabus.DefaultMaxTopics, "maximum number of topics to keep")
	examsSubmitCmd.Flags().Bool("crisis", false, "plan in crisis mode")
	examsCmd.AddCommand(examsOpenCmd, examsCloseCmd, examsAddCmd, examsRemoveCmd, examsSetCmd, examsSyllabusCmd, examsSubmitCmd)
}

// --- profile ---

type profileState struct {
	HasProfile bool          `json:"has_profile"`
	Profile    study.Profile `json:"profile"`
}

type editState struct {
	Editing bool          `json:"editing"`
	Buffer  study.Profile `json:"buffer"`
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your study profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var st profileState
		if err := client.call(cmd.Context(), http.MethodGet, "/profile", nil, &st); err != nil {
			return err
		}
		if !st.HasProfile {
			printWarning("No profile yet. Run \"studyd profile create\".")
			return nil
		}
		return printJSON(st.Profile)
	},
}

var profileCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Set up your profile in $EDITOR, starting from the defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		p := study.DefaultProfile()
		if err := editInEditor(&p); err != nil {
			return err
		}
		if err := client.call(cmd.Context(), http.MethodPost, "/profile", p, nil); err != nil {
			return err
		}
		printSuccess("Profile created")
		return nil
	},
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the profile in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var ed editState
		if err := client.call(ctx, http.MethodPost, "/profile/edit", nil, &ed); err != nil {
			return err
		}
		if err := editInEditor(&ed.Buffer); err != nil {
			client.call(ctx, http.MethodPost, "/profile/edit/cancel", nil, nil)
			return err
		}
		if err := client.call(ctx, http.MethodPatch, "/profile/edit", ed.Buffer, nil); err != nil {
			return err
		}
		if err := client.call(ctx, http.MethodPost, "/profile/edit/save", nil, nil); err != nil {
			return err
		}
		printSuccess("Profile updated")
		return nil
	},
}

var profileResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the profile and start over",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This deletes your profile and conversation. Use --confirm to proceed.")
			return nil
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.call(cmd.Context(), http.MethodPost, "/profile/reset?confirm=true", nil, nil); err != nil {
			return err
		}
		printSuccess("Profile reset")
		return nil
	},
}

// editInEditor round-trips p through $EDITOR as indented JSON.
func editInEditor(p *study.Profile) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp("", "studyd-profile-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return err
	}
	tmpFile.Close()

	editorCmd := exec.Command(editor, tmpPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(edited, p); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func init() {
	profileResetCmd.Flags().Bool("confirm", false, "confirm the reset")
	profileCmd.AddCommand(profileShowCmd, profileCreateCmd, profileEditCmd, profileResetCmd)
}

// --- checkin ---

var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Register a study session you already did",
	Long: `Register a study session you already did.

Example:
  studyd checkin --subject "Química" --hours 1.5 --energy 4 --goal-met sí`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var st session.CheckinState
		if err := client.call(ctx, http.MethodPost, "/checkin/open", nil, &st); err != nil {
			return err
		}
		if err := client.call(ctx, http.MethodPost, "/checkin", checkinForm(cmd, st.Form), &st); err != nil {
			return err
		}
		printSuccess("Session registered")
		return nil
	},
}

// checkinForm overlays the flags that were set onto form.
func checkinForm(cmd *cobra.Command, form study.CheckinForm) study.CheckinForm {
	f := cmd.Flags()
	strs := map[string]*string{
		"subject":    &form.Subject,
		"difficulty": &form.Difficulty,
		"goal-met":   &form.GoalMet,
		"blocker":    &form.BlockingFactor,
		"location":   &form.Location,
		"activity":   &form.Activity,
	}
	for flag, dst := range strs {
		if f.Changed(flag) {
			*dst, _ = f.GetString(flag)
		}
	}
	if f.Changed("hours") {
		form.Hours, _ = f.GetFloat64("hours")
	}
	if f.Changed("energy") {
		form.Energy, _ = f.GetInt("energy")
	}
	if f.Changed("grade") {
		g, _ := f.GetFloat64("grade")
		form.Grade = &g
	}
	return form
}

func init() {
	f := checkinCmd.Flags()
	f.String("subject", "", "subject studied")
	f.Float64("hours", 1, "hours studied")
	f.String("difficulty", "", "baja, media or alta")
	f.Int("energy", study.DefaultEnergy, "energy level 1-5")
	f.String("goal-met", "", "sí, parcial or no")
	f.String("blocker", "", "what got in the way")
	f.Float64("grade", 0, "grade obtained, if any")
	f.String("location", "", "where you studied")
	f.String("activity", "", "physical activity that day")
}

// --- dashboard ---

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show study statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var stats study.DashboardStats
		if err := client.call(cmd.Context(), http.MethodGet, "/dashboard", nil, &stats); err != nil {
			return err
		}
		printStatus("Hours studied", "%.1f", stats.TotalHours)
		printStatus("Sessions", "%d", stats.TotalSessions)
		printStatus("Average energy", "%.1f", stats.AvgEnergy)
		printStatus("Goals met", "%.0f%%", stats.SuccessRate)
		printStatus("Level", "%d (%d/%d XP)", stats.Level, stats.XP, stats.XPNext)
		printStatus("Streak", "%d days", stats.StreakDays)
		printStatus("Achievements", "%d", len(stats.Achievements))
		return nil
	},
}

// --- calendar ---

type calendarState struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show calendar connection status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return calendarAction(cmd, http.MethodGet, "/calendar")
	},
}

var calendarConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Authorize calendar access",
	RunE: func(cmd *cobra.Command, args []string) error {
		return calendarAction(cmd, http.MethodPost, "/calendar/connect")
	},
}

var calendarSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy the latest generated schedule to the calendar",
	RunE: func(cmd *cobra.Command, args []string) error {
		return calendarAction(cmd, http.MethodPost, "/calendar/sync")
	},
}

func calendarAction(cmd *cobra.Command, method, path string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	var st calendarState
	if err := client.call(cmd.Context(), method, path, nil, &st); err != nil {
		return err
	}
	if st.Message != "" {
		printSuccess("%s", st.Message)
	}
	printStatus("Calendar", "%s", connectedLabel(st.Connected))
	return nil
}

func init() {
	calendarCmd.AddCommand(calendarConnectCmd, calendarSyncCmd)
}

// --- notices ---

var noticesCmd = &cobra.Command{
	Use:   "notices",
	Short: "Show alerts and celebrations raised by the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		all, _ := cmd.Flags().GetBool("all")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var notices []storage.Notice
		path := fmt.Sprintf("/notices?limit=%d&unread=%t", limit, !all)
		if err := client.call(cmd.Context(), http.MethodGet, path, nil, &notices); err != nil {
			return err
		}
		if len(notices) == 0 {
			fmt.Println("Nothing new.")
			return nil
		}
		for _, n := range notices {
			fmt.Println(formatNotice(n))
		}
		return nil
	},
}

var noticesReadCmd = &cobra.Command{
	Use:   "read [id]",
	Short: "Mark one notice, or all of them, as read",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			if err := client.call(cmd.Context(), http.MethodPost, "/notices/"+args[0]+"/read", nil, nil); err != nil {
				return err
			}
			printSuccess("Marked %s as read", args[0])
			return nil
		}
		var res struct {
			Marked int `json:"marked"`
		}
		if err := client.call(cmd.Context(), http.MethodPost, "/notices/read", nil, &res); err != nil {
			return err
		}
		printSuccess("Marked %d notices as read", res.Marked)
		return nil
	},
}

func formatNotice(n storage.Notice) string {
	icon := colorize(colorYellow, "!")
	if n.Kind == "celebration" {
		icon = colorize(colorGreen, "★")
	}
	id := n.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s %s  %s  %s", icon, colorize(colorCyan, id), n.CreatedAt.Local().Format("Jan 2 15:04"), n.Message)
}

func init() {
	noticesCmd.Flags().Int("limit", 20, "maximum number of notices")
	noticesCmd.Flags().Bool("all", false, "include notices already read")
	noticesCmd.AddCommand(noticesReadCmd)
}

// --- xp ---

var xpCmd = &cobra.Command{
	Use:   "xp",
	Short: "Show experience earned on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var sum gamify.Summary
		if err := client.call(cmd.Context(), http.MethodGet, "/xp", nil, &sum); err != nil {
			return err
		}
		printStatus("Level", "%d", sum.Level)
		printStatus("Progress", "%s %d/%d XP", progressBar(sum.IntoLevel*100/max(sum.NextLevel, 1)), sum.IntoLevel, sum.NextLevel)
		printStatus("Total", "%d XP", sum.Total)
		for _, a := range sum.Recent {
			fmt.Printf("  +%-4d %s  %s\n", a.XP, a.CreatedAt.Local().Format("Jan 2 15:04"), gamify.Label(a.Reason))
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "$"+k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Set a configuration value",
	Args:      cobra.ExactArgs(2),
	ValidArgs: config.ValidKeys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
