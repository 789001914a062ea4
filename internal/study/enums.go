package study

import (
	"strings"
	"time"
)

// Modality is how the user attends classes.
type Modality string

const (
	ModalityInPerson Modality = "Presencial"
	ModalityVirtual  Modality = "Virtual"
	ModalityHybrid   Modality = "Híbrido"
)

// CommuteMode is the user's usual way of getting around.
type CommuteMode string

const (
	CommuteDrive           CommuteMode = "Conducir"
	CommutePublicTransport CommuteMode = "Transporte Público"
	CommuteWalkBike        CommuteMode = "Caminar/Bici"
	CommuteNone            CommuteMode = "N/A"
)

// DomesticLoad is how much household work the user carries.
type DomesticLoad string

const (
	DomesticHigh   DomesticLoad = "Alta (Vivo solo)"
	DomesticMedium DomesticLoad = "Media (Ayudo)"
	DomesticLow    DomesticLoad = "Baja (Vivo con padres)"
)

// Chronotype is the part of the day the user is sharpest.
type Chronotype string

const (
	ChronotypeMorning   Chronotype = "Mañana (Alondra)"
	ChronotypeAfternoon Chronotype = "Tarde"
	ChronotypeNight     Chronotype = "Noche (Búho)"
)

// StaminaTier is the user's study endurance. It selects the default
// focus-interval length.
type StaminaTier string

const (
	StaminaLow    StaminaTier = "Baja (25min)"
	StaminaMedium StaminaTier = "Media (45min)"
	StaminaHigh   StaminaTier = "Alta (90min)"
)

// FocusMinutes maps the tier to its focus-interval length. Unknown or empty
// tiers get the shortest interval.
func (s StaminaTier) FocusMinutes() int {
	v := strings.ToLower(string(s))
	switch {
	case strings.Contains(v, "alta"), strings.Contains(v, "high"):
		return 90
	case strings.Contains(v, "media"), strings.Contains(v, "medium"):
		return 45
	default:
		return 25
	}
}

// Difficulty is an exam's difficulty tier.
type Difficulty string

const (
	DifficultyHigh   Difficulty = "Alta"
	DifficultyMedium Difficulty = "Media"
	DifficultyLow    Difficulty = "Baja"
)

// ExamFormat is how an exam is taken.
type ExamFormat string

const (
	FormatTheoretical ExamFormat = "Teórico"
	FormatPractical   ExamFormat = "Práctico"
	FormatOral        ExamFormat = "Oral"
	FormatProject     ExamFormat = "Proyecto"
)

var weekdayNames = [...]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}

// WeekdayName returns the backend's name for t's day of the week.
func WeekdayName(t time.Time) string {
	return weekdayNames[t.Weekday()]
}
