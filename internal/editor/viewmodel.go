package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Field identifies an edit input.
type Field string

const (
	FieldName        Field = "name"
	FieldGender      Field = "gender"
	FieldRace        Field = "race"
	FieldClass       Field = "class"
	FieldLevel       Field = "level"
	FieldStatus      Field = "status"
	FieldSpeed       Field = "speed"
	FieldBackground  Field = "background"
	FieldCredits     Field = "credits"
	FieldDoch        Field = "doch"
	FieldRenown      Field = "renown"
	FieldExtraPoints Field = "extra"
	FieldWoundsMod   Field = "woundsMod"
	FieldStaminaMod  Field = "staminaMod"
)

// AttributeField returns the edit input of an attribute.
func AttributeField(a Attribute) Field { return Field(a) }

// liveFields mirror to the display as soon as they change. Every field with
// a display readout is live; the rest only exist in the edit form.
var liveFields = func() map[Field]bool {
	m := map[Field]bool{
		FieldName: true, FieldGender: true, FieldRace: true, FieldClass: true,
		FieldLevel: true, FieldStatus: true, FieldSpeed: true, FieldBackground: true,
	}
	for _, a := range Attributes {
		m[AttributeField(a)] = true
	}
	return m
}()

// IsLive reports whether f mirrors to the display while the modal is open.
func IsLive(f Field) bool { return liveFields[f] }

// ListKeys are the free-text list sections in sheet order.
var ListKeys = []string{
	"actions", "bonusActions", "other", "traits", "resistances",
	"immunities", "weaknesses", "inventory", "statusEffects", "notes",
}

const StatusEffectsList = "statusEffects"

var (
	ErrMalformedSheet   = errors.New("could not load character from file: it might be corrupted")
	ErrUnknownField     = errors.New("unknown field")
	ErrUnknownList      = errors.New("unknown list")
	ErrPortraitNotJPEG  = errors.New("portrait must be a JPEG image")
	ErrEntryOutOfBounds = errors.New("list entry out of range")
)

// Display holds the readouts shown on the sheet outside the edit modal.
type Display struct {
	Fields  map[Field]string
	Dash    string
	Organic bool
}

// ViewModel is the editor state: the edit form, the display readouts and
// everything derived from them. Construct it once with New.
type ViewModel struct {
	edit      map[Field]string
	display   Display
	modalOpen bool

	Wounds  *Tracker
	Stamina *Tracker
	Custom  []*Tracker

	portrait string
	lists    map[string][]ListEntry
}

// New returns the editor as a blank sheet is first shown.
func New() *ViewModel {
	vm := &ViewModel{
		edit: map[Field]string{
			FieldName:        "",
			FieldGender:      "Other",
			FieldRace:        "Human",
			FieldClass:       "",
			FieldLevel:       "1",
			FieldStatus:      "Middle",
			FieldSpeed:       "6",
			FieldBackground:  "",
			FieldCredits:     "0",
			FieldDoch:        "0",
			FieldRenown:      "0",
			FieldExtraPoints: "0",
			FieldWoundsMod:   strconv.Itoa(DefaultWoundsMod),
			FieldStaminaMod:  strconv.Itoa(DefaultStaminaMod),
		},
		display: Display{Fields: make(map[Field]string)},
		Wounds:  NewTracker("Wounds", 0, 0),
		Stamina: NewTracker("Stamina", 0, 0),
		lists:   make(map[string][]ListEntry),
	}
	for _, a := range Attributes {
		vm.edit[AttributeField(a)] = "1"
	}
	for _, k := range ListKeys {
		vm.lists[k] = []ListEntry{}
	}
	vm.resizeVitals()
	vm.syncDisplay()
	return vm
}

// Field returns the current edit value of f.
func (vm *ViewModel) Field(f Field) string { return vm.edit[f] }

// Display returns a copy of the display readouts.
func (vm *ViewModel) Display() Display {
	d := Display{Fields: make(map[Field]string, len(vm.display.Fields)), Dash: vm.display.Dash, Organic: vm.display.Organic}
	for k, v := range vm.display.Fields {
		d.Fields[k] = v
	}
	return d
}

// SetField updates an edit input and applies its side effects.
func (vm *ViewModel) SetField(f Field, value string) error {
	if _, ok := vm.edit[f]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	vm.edit[f] = value

	switch f {
	case AttributeField(TN), AttributeField(DEX), FieldWoundsMod, FieldStaminaMod:
		vm.resizeVitals()
	case FieldStatus:
		if credits, ok := CreditsForStatus(value); ok {
			vm.edit[FieldCredits] = strconv.Itoa(credits)
		}
	}
	if IsLive(f) {
		vm.syncDisplay()
	}
	return nil
}

// SetAttribute is SetField for an attribute input.
func (vm *ViewModel) SetAttribute(a Attribute, value string) error {
	return vm.SetField(AttributeField(a), value)
}

func (vm *ViewModel) OpenModal() { vm.modalOpen = true }

// CloseModal commits every edit to the display.
func (vm *ViewModel) CloseModal() {
	vm.modalOpen = false
	vm.syncDisplay()
}

func (vm *ViewModel) ModalOpen() bool { return vm.modalOpen }

func (vm *ViewModel) attributes() map[Attribute]string {
	m := make(map[Attribute]string, len(Attributes))
	for _, a := range Attributes {
		m[a] = vm.edit[AttributeField(a)]
	}
	return m
}

func (vm *ViewModel) PointsRemaining() int {
	return PointsRemaining(vm.attributes(), vm.edit[FieldLevel], vm.edit[FieldExtraPoints])
}

// OverBudget reports whether points remaining is negative; the sheet shows
// the value in the warning colour.
func (vm *ViewModel) OverBudget() bool { return vm.PointsRemaining() < 0 }

func (vm *ViewModel) resizeVitals() {
	vm.Wounds.Resize(WoundCapacity(vm.edit[FieldWoundsMod], vm.edit[AttributeField(TN)]))
	vm.Stamina.Resize(StaminaCapacity(vm.edit[FieldStaminaMod], vm.edit[AttributeField(DEX)]))
}

func (vm *ViewModel) syncDisplay() {
	for f := range liveFields {
		vm.display.Fields[f] = vm.edit[f]
	}
	vm.display.Dash = DashText(vm.edit[FieldSpeed])
	vm.display.Organic = IsOrganic(vm.edit[FieldRace])
}

// AddTracker appends a custom tracker.
func (vm *ViewModel) AddTracker(name string, max, current int) *Tracker {
	t := NewTracker(name, max, current)
	vm.Custom = append(vm.Custom, t)
	return t
}

// RemoveTracker deletes custom tracker i.
func (vm *ViewModel) RemoveTracker(i int) {
	if i >= 0 && i < len(vm.Custom) {
		vm.Custom = append(vm.Custom[:i], vm.Custom[i+1:]...)
	}
}

// Portrait returns the portrait data URL.
func (vm *ViewModel) Portrait() string { return vm.portrait }

// SetPortrait accepts JPEG data URLs only.
func (vm *ViewModel) SetPortrait(dataURL string) error {
	if !strings.HasPrefix(dataURL, "data:image/jpeg") {
		return ErrPortraitNotJPEG
	}
	vm.portrait = dataURL
	return nil
}

// List returns a copy of the entries of list key.
func (vm *ViewModel) List(key string) []ListEntry {
	return append([]ListEntry(nil), vm.lists[key]...)
}

func (vm *ViewModel) AddListEntry(key string, e ListEntry) error {
	if _, ok := vm.lists[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownList, key)
	}
	vm.lists[key] = append(vm.lists[key], e)
	return nil
}

func (vm *ViewModel) SetListEntry(key string, i int, text string) error {
	entries, ok := vm.lists[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownList, key)
	}
	if i < 0 || i >= len(entries) {
		return ErrEntryOutOfBounds
	}
	entries[i].Text = text
	return nil
}

func (vm *ViewModel) RemoveListEntry(key string, i int) error {
	entries, ok := vm.lists[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownList, key)
	}
	if i < 0 || i >= len(entries) {
		return ErrEntryOutOfBounds
	}
	vm.lists[key] = append(entries[:i], entries[i+1:]...)
	return nil
}

// StatusEffectsHeader lists the non-blank status effects for the header.
func (vm *ViewModel) StatusEffectsHeader() []string {
	var out []string
	for _, e := range vm.lists[StatusEffectsList] {
		if strings.TrimSpace(e.Text) != "" {
			out = append(out, e.Text)
		}
	}
	return out
}

// Populate loads doc into the editor. Sections missing from doc keep their
// current values, except custom trackers which are always replaced.
func (vm *ViewModel) Populate(doc *Document) {
	if doc == nil {
		return
	}

	if h := doc.Header; h != nil {
		vm.edit[FieldName] = string(h.Name)
		vm.edit[FieldGender] = or(h.Gender, "Other")
		vm.edit[FieldRace] = or(h.Race, "Human")
		vm.edit[FieldClass] = string(h.Class)
		vm.edit[FieldLevel] = or(h.Level, "1")
		vm.edit[FieldStatus] = or(h.Status, "Middle")
		vm.edit[FieldSpeed] = or(h.Speed, "6")
		vm.edit[FieldBackground] = string(h.Background)
		vm.edit[FieldCredits] = or(h.Credits, "0")
		vm.edit[FieldDoch] = or(h.Doch, "0")
		vm.edit[FieldRenown] = or(h.Renown, "0")
	}

	if s := doc.Stats; s != nil {
		for _, a := range Attributes {
			if v := *s.field(a); v != nil {
				vm.edit[AttributeField(a)] = string(*v)
			}
		}
		vm.edit[FieldExtraPoints] = or(s.Extra, "0")
	}

	if m := doc.Mods; m != nil {
		vm.edit[FieldWoundsMod] = or(m.Wounds, strconv.Itoa(DefaultWoundsMod))
		vm.edit[FieldStaminaMod] = or(m.Stamina, strconv.Itoa(DefaultStaminaMod))
	}

	vm.resizeVitals()
	if st := doc.StatusState; st != nil {
		vm.Wounds.SetChecked(int(st.Wounds))
		vm.Stamina.SetChecked(int(st.Stamina))
	}

	vm.Custom = nil
	for _, t := range doc.CustomTrackers {
		vm.AddTracker(t.Name, int(t.Max), int(t.Current))
	}

	if doc.Appearance != nil && doc.Appearance.Pfp != "" {
		vm.portrait = doc.Appearance.Pfp
	}

	if doc.Lists != nil {
		for _, k := range ListKeys {
			vm.lists[k] = append([]ListEntry{}, doc.Lists[k]...)
		}
	}

	vm.syncDisplay()
}

// ImportJSON parses a sheet file and populates the editor. Malformed input
// leaves the editor untouched.
func (vm *ViewModel) ImportJSON(data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	vm.Populate(doc)
	return nil
}

// ParseDocument decodes a sheet file. A JSON null yields a nil document.
func ParseDocument(data []byte) (*Document, error) {
	var doc *Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSheet, err)
	}
	return doc, nil
}

// Snapshot serializes the full editor state.
func (vm *ViewModel) Snapshot() *Document {
	text := func(f Field) Text { return Text(vm.edit[f]) }

	stats := &Stats{Extra: text(FieldExtraPoints)}
	for _, a := range Attributes {
		v := text(AttributeField(a))
		*stats.field(a) = &v
	}

	doc := &Document{
		Header: &Header{
			Name:       text(FieldName),
			Gender:     text(FieldGender),
			Race:       text(FieldRace),
			Class:      text(FieldClass),
			Level:      text(FieldLevel),
			Status:     text(FieldStatus),
			Speed:      text(FieldSpeed),
			Background: text(FieldBackground),
			Credits:    text(FieldCredits),
			Doch:       text(FieldDoch),
			Renown:     text(FieldRenown),
		},
		Stats: stats,
		Mods: &Mods{
			Wounds:  text(FieldWoundsMod),
			Stamina: text(FieldStaminaMod),
		},
		StatusState: &StatusState{
			Wounds:  Count(vm.Wounds.Checked()),
			Stamina: Count(vm.Stamina.Checked()),
		},
		CustomTrackers: []TrackerState{},
		Appearance:     &Appearance{Pfp: vm.portrait},
		Lists:          make(map[string][]ListEntry, len(ListKeys)),
	}
	for _, t := range vm.Custom {
		doc.CustomTrackers = append(doc.CustomTrackers, TrackerState{
			Name:    t.Name,
			Max:     Count(t.Max()),
			Current: Count(t.Checked()),
		})
	}
	for _, k := range ListKeys {
		doc.Lists[k] = vm.List(k)
		if doc.Lists[k] == nil {
			doc.Lists[k] = []ListEntry{}
		}
	}
	return doc
}

// ExportJSON returns the editor state as a sheet file.
func (vm *ViewModel) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(vm.Snapshot(), "", "  ")
}

func or(t Text, def string) string {
	if t == "" {
		return def
	}
	return string(t)
}
