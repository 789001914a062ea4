// Package study holds the study planner's data model as exchanged with the
// planning backend. JSON names follow the backend's wire contract.
package study

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Profile is the user's planning preferences.
type Profile struct {
	Name         string       `json:"nombre"`
	Program      string       `json:"carrera"`
	Modality     Modality     `json:"modalidad"`
	Works        bool         `json:"trabaja"`
	WorkStart    string       `json:"horario_trabajo_inicio,omitempty"`
	WorkEnd      string       `json:"horario_trabajo_fin,omitempty"`
	CommuteMins  int          `json:"tiempo_transporte"`
	CommuteMode  CommuteMode  `json:"transporte_tipo"`
	DomesticLoad DomesticLoad `json:"carga_domestica"`
	Chronotype   Chronotype   `json:"cronotipo"`
	SleepHours   float64      `json:"horas_sueno"`
	Stamina      StaminaTier  `json:"resistencia_estudio"`
	GoldenHour   string       `json:"hora_dorada,omitempty"`
}

// DefaultProfile returns the onboarding form defaults.
func DefaultProfile() Profile {
	return Profile{
		Modality:     ModalityInPerson,
		WorkStart:    "09:00",
		WorkEnd:      "18:00",
		CommuteMins:  30,
		CommuteMode:  CommutePublicTransport,
		DomesticLoad: DomesticMedium,
		Chronotype:   ChronotypeAfternoon,
		SleepHours:   7,
		Stamina:      StaminaMedium,
	}
}

// ChatTurn is one entry of the assistant transcript. Schedule carries the
// backend's generated plan verbatim when present.
type ChatTurn struct {
	Role       Role            `json:"role"`
	Text       string          `json:"text"`
	Schedule   json.RawMessage `json:"horario,omitempty"`
	Milestones []Milestone     `json:"hitos,omitempty"`
}

// HasSchedule reports whether the turn embeds a generated schedule.
func (t ChatTurn) HasSchedule() bool {
	return len(t.Schedule) > 0 && string(t.Schedule) != "null"
}

// ExamItem is one row of the exam planner's working set.
type ExamItem struct {
	Subject    string     `json:"materia"`
	Date       string     `json:"fecha"`
	Time       string     `json:"hora"`
	Hours      float64    `json:"duracion"`
	Topics     string     `json:"temas"`
	Difficulty Difficulty `json:"dificultad"`
	Format     ExamFormat `json:"formato"`
	Confidence int        `json:"confianza"`
}

// NewExamItem returns a planner row with its defaults: tomorrow at 08:00,
// two hours, high difficulty, theoretical, 50% confidence.
func NewExamItem(now time.Time) ExamItem {
	return ExamItem{
		Date:       now.AddDate(0, 0, 1).Format(time.DateOnly),
		Time:       "08:00",
		Hours:      2,
		Difficulty: DifficultyHigh,
		Format:     FormatTheoretical,
		Confidence: 50,
	}
}

// Milestone is a step of a Project.
type Milestone struct {
	Title       string   `json:"titulo"`
	Description string   `json:"descripcion"`
	Due         string   `json:"fecha_limite"`
	Completed   bool     `json:"completado"`
	Weight      *float64 `json:"peso,omitempty"`
}

// Project is a long-running goal broken into milestones. Progress is
// derived from the milestones and never set by the user.
type Project struct {
	ID          string      `json:"id"`
	Name        string      `json:"nombre"`
	Description string      `json:"descripcion"`
	Deadline    string      `json:"fecha_fin"`
	Progress    int         `json:"progreso"`
	Milestones  []Milestone `json:"hitos"`
}

// ProjectDraft is the creation form for a Project.
type ProjectDraft struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
	Deadline    string `json:"fecha_fin"`
}

// SessionRecord is a study-session history entry sent to the backend,
// either from a manual check-in or from a completed focus interval.
type SessionRecord struct {
	Subject        string      `json:"materia"`
	Hours          float64     `json:"horas_reales"`
	Difficulty     string      `json:"dificultad,omitempty"`
	Energy         int         `json:"nivel_energia,omitempty"`
	GoalMet        string      `json:"cumplio_objetivo,omitempty"`
	BlockingFactor string      `json:"factor_bloqueo,omitempty"`
	Grade          *float64    `json:"calificacion,omitempty"`
	Weekday        string      `json:"dia_semana,omitempty"`
	SleepHours     float64     `json:"horas_sueno,omitempty"`
	Location       string      `json:"lugar_estudio,omitempty"`
	Activity       string      `json:"actividad_fisica,omitempty"`
	Kind           SessionKind `json:"tipo_sesion"`
}

// SessionKind tells the backend where a history record came from.
type SessionKind string

const (
	SessionManual   SessionKind = "Manual"
	SessionPomodoro SessionKind = "Pomodoro"
)

// CheckinForm is the manual check-in form. Weekday and sleep hours are
// filled in at submission time.
type CheckinForm struct {
	Subject        string   `json:"materia"`
	Hours          float64  `json:"horas_reales"`
	Difficulty     string   `json:"dificultad"`
	Energy         int      `json:"nivel_energia"`
	GoalMet        string   `json:"cumplio_objetivo"`
	BlockingFactor string   `json:"factor_bloqueo"`
	Grade          *float64 `json:"calificacion,omitempty"`
	Location       string   `json:"lugar_estudio"`
	Activity       string   `json:"actividad_fisica"`
}

// DefaultEnergy is the energy level the check-in form resets to.
const DefaultEnergy = 3

// DefaultCheckinForm returns the check-in form defaults.
func DefaultCheckinForm() CheckinForm {
	return CheckinForm{
		Hours:          1,
		Difficulty:     "media",
		Energy:         DefaultEnergy,
		GoalMet:        "sí",
		BlockingFactor: "Ninguno",
		Location:       "Casa",
		Activity:       "Ninguna",
	}
}

// DashboardStats is the backend's read-only statistics snapshot.
type DashboardStats struct {
	TotalHours    float64           `json:"total_horas"`
	TotalSessions int               `json:"sesiones_totales"`
	AvgEnergy     float64           `json:"promedio_energia"`
	SuccessRate   float64           `json:"tasa_exito"`
	SubjectChart  []json.RawMessage `json:"materias_chart"`
	EnergyChart   []json.RawMessage `json:"energia_chart"`
	Level         int               `json:"nivel"`
	XP            int               `json:"xp_actual"`
	XPNext        int               `json:"xp_siguiente"`
	StreakDays    int               `json:"racha_dias"`
	Achievements  []json.RawMessage `json:"logros"`
}

// EmptyStats is the snapshot shown before the first fetch.
func EmptyStats() DashboardStats {
	return DashboardStats{Level: 1, XPNext: 1000}
}
