package editor

import "fmt"

// Attribute is one of the nine primary attributes.
type Attribute string

const (
	WS  Attribute = "ws"  // weapon skill
	BS  Attribute = "bs"  // ballistic skill
	TN  Attribute = "tn"  // toughness
	STR Attribute = "str" // strength
	DEX Attribute = "dex" // dexterity
	INT Attribute = "int" // intelligence
	PER Attribute = "per" // perception
	WP  Attribute = "wp"  // willpower
	FEL Attribute = "fel" // fellowship
)

// Attributes lists the primary attributes in sheet order.
var Attributes = []Attribute{WS, BS, TN, STR, DEX, INT, PER, WP, FEL}

const (
	BasePoints        = 9
	DefaultWoundsMod  = 2
	DefaultStaminaMod = 1

	// MaxTrackerBoxes bounds every checkbox row, however large the inputs.
	MaxTrackerBoxes = 1000
)

// PointsRemaining is the unspent attribute budget: nine base points plus one
// per level above the first plus extra points, minus what the attributes cost
// above their base value of 1. Blank or invalid values count as 1 (level,
// attributes) or 0 (extra).
func PointsRemaining(attrs map[Attribute]string, level, extra string) int {
	total := 0
	for _, a := range Attributes {
		total += intOr(attrs[a], 1)
	}
	spent := total - len(Attributes)
	available := BasePoints + (intOr(level, 1) - 1) + intOr(extra, 0)
	return available - spent
}

// WoundCapacity is the number of wound boxes: woundsMod × toughness.
func WoundCapacity(woundsMod, toughness string) int {
	return capacity(intOr(woundsMod, 0), intOr(toughness, 1))
}

// StaminaCapacity is the number of stamina boxes: staminaMod × dexterity.
func StaminaCapacity(staminaMod, dexterity string) int {
	return capacity(intOr(staminaMod, 0), intOr(dexterity, 1))
}

func capacity(mod, attr int) int {
	if mod == 0 || attr == 0 || (mod < 0) != (attr < 0) {
		return 0
	}
	a, b := abs(mod), abs(attr)
	if a < 0 || b < 0 || a > MaxTrackerBoxes/b {
		// a or b was math.MinInt, or the product exceeds the cap
		return MaxTrackerBoxes
	}
	return a * b
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// DashDistance is the number of tiles the dash action moves: twice the speed.
func DashDistance(speed string) int {
	return 2 * intOr(speed, 0)
}

// DashText is the label of the derived dash action.
func DashText(speed string) string {
	return fmt.Sprintf("Dash [Move %d tiles] (1 stamina)", DashDistance(speed))
}

// Race is a selectable race and whether it uses the organic sheet sections.
type Race struct {
	Name    string
	Organic bool
}

var Races = []Race{
	{Name: "Human", Organic: true},
	{Name: "Mutant", Organic: true},
	{Name: "Xeno", Organic: true},
	{Name: "Android", Organic: false},
	{Name: "Synth", Organic: false},
	{Name: "Drone", Organic: false},
}

// IsOrganic reports whether race shows the organic sections. Unknown races
// fall back to organic, like the default race.
func IsOrganic(race string) bool {
	for _, r := range Races {
		if r.Name == race {
			return r.Organic
		}
	}
	return true
}

// Status is a socioeconomic status and its suggested starting credits.
type Status struct {
	Name    string
	Credits int
}

var Statuses = []Status{
	{Name: "Wealthy", Credits: 1000},
	{Name: "Middle", Credits: 500},
	{Name: "Poor", Credits: 50},
	{Name: "Destitute", Credits: 0},
}

// CreditsForStatus returns the suggested credits for status.
func CreditsForStatus(status string) (int, bool) {
	for _, s := range Statuses {
		if s.Name == status {
			return s.Credits, true
		}
	}
	return 0, false
}
