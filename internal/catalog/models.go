package catalog

import (
	"encoding/json"
	"strconv"
	"strings"

	"cyberrange-server/internal/shared/errors"
)

// DefaultOptionID is the designated fallback option of every situation.
// A player who cannot afford the option they picked is forced onto it.
// Its presence is validated when the situations catalog is parsed.
const DefaultOptionID = "1"

// Control is a defensive measure a player can buy: a flat cost plus a
// per-threat effectiveness fraction in [0,1].
type Control struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Cost          int                `json:"cost"`
	Effectiveness map[string]float64 `json:"effectiveness"`
}

// Threat is an attack type with the downtime (minutes) it inflicts on success.
type Threat struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Downtime int    `json:"downtime"`
}

// Project is a one-time task granting a permanent per-threat effectiveness bonus.
type Project struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Cost          int                `json:"cost"`
	Effectiveness map[string]float64 `json:"effectiveness"`
}

// EffectKind tags the single effect a situation option carries.
type EffectKind string

const (
	// EffectCost deducts the amount from the player's budget.
	EffectCost EffectKind = "cost"
	// EffectObsoleteControls permanently removes the protective effect of controls.
	EffectObsoleteControls EffectKind = "obsolete_controls"
	// EffectAffectedControls suspends controls for a number of minutes.
	EffectAffectedControls EffectKind = "affected_controls"
	// EffectDowntime adds minutes directly to the player's downtime.
	EffectDowntime EffectKind = "downtime"
)

// Effect is the decoded outcome of choosing a situation option. The kind
// is decided once when the catalog document is parsed, never re-sniffed
// per call.
type Effect struct {
	Kind            EffectKind `json:"kind"`
	Cost            float64    `json:"cost,omitempty"`
	ControlIDs      []string   `json:"control_ids,omitempty"`
	AffectedMinutes int        `json:"affected_minutes,omitempty"`
	DowntimeMinutes int        `json:"downtime_minutes,omitempty"`
}

// Option is one branch of a situation.
type Option struct {
	ID     string `json:"id"`
	Text   string `json:"text,omitempty"`
	Effect Effect `json:"effect"`
}

// Situation is a scripted one-time branching event.
type Situation struct {
	ID          string            `json:"id"`
	Description string            `json:"description,omitempty"`
	Options     map[string]Option `json:"options"`
}

// Raw document shapes as stored in the catalogs table. The wire format
// keeps the conventions of the seeded game data: costs may be "$200"
// strings, effectiveness values are "50%" strings.

type rawControl struct {
	Name          string            `json:"control"`
	Cost          json.RawMessage   `json:"cost"`
	Effectiveness map[string]string `json:"effectiveness"`
}

type rawThreat struct {
	Name     string          `json:"name"`
	Downtime json.RawMessage `json:"downtime"`
}

type rawProject struct {
	Name          string            `json:"name"`
	Cost          json.RawMessage   `json:"cost"`
	Effectiveness map[string]string `json:"effectiveness"`
}

type rawSituation struct {
	Description string                     `json:"description"`
	Options     map[string]json.RawMessage `json:"options"`
}

type rawOption struct {
	Text     string          `json:"text"`
	Cost     json.RawMessage `json:"cost"`
	Control  json.RawMessage `json:"control"`
	Downtime json.RawMessage `json:"downtime"`
}

// ParseControls decodes a controls catalog document of the form
// {"controls": {"c1": {"control": ..., "cost": ..., "effectiveness": {...}}}}.
func ParseControls(doc []byte) (map[string]Control, error) {
	var envelope struct {
		Controls map[string]rawControl `json:"controls"`
	}
	if err := json.Unmarshal(doc, &envelope); err != nil {
		return nil, errors.WrapInconsistency("controls catalog document is malformed", err)
	}

	controls := make(map[string]Control, len(envelope.Controls))
	for id, raw := range envelope.Controls {
		cost, err := parseMoney(raw.Cost)
		if err != nil {
			return nil, errors.Inconsistencyf("control %s has an unparseable cost: %v", id, err)
		}

		effectiveness, err := parseEffectiveness(raw.Effectiveness)
		if err != nil {
			return nil, errors.Inconsistencyf("control %s has an unparseable effectiveness map: %v", id, err)
		}

		controls[id] = Control{
			ID:            id,
			Name:          raw.Name,
			Cost:          int(cost),
			Effectiveness: effectiveness,
		}
	}

	return controls, nil
}

// ParseThreats decodes a threats catalog document of the form
// {"threats": {"t1": {"name": ..., "downtime": ...}}}.
func ParseThreats(doc []byte) (map[string]Threat, error) {
	var envelope struct {
		Threats map[string]rawThreat `json:"threats"`
	}
	if err := json.Unmarshal(doc, &envelope); err != nil {
		return nil, errors.WrapInconsistency("threats catalog document is malformed", err)
	}

	threats := make(map[string]Threat, len(envelope.Threats))
	for id, raw := range envelope.Threats {
		downtime, err := parseNumber(raw.Downtime)
		if err != nil {
			return nil, errors.Inconsistencyf("threat %s has an unparseable downtime: %v", id, err)
		}

		threats[id] = Threat{
			ID:       id,
			Name:     raw.Name,
			Downtime: int(downtime),
		}
	}

	return threats, nil
}

// ParseProjects decodes a projects catalog document of the form
// {"projects": {"p1": {"name": ..., "cost": ..., "effectiveness": {...}}}}.
func ParseProjects(doc []byte) (map[string]Project, error) {
	var envelope struct {
		Projects map[string]rawProject `json:"projects"`
	}
	if err := json.Unmarshal(doc, &envelope); err != nil {
		return nil, errors.WrapInconsistency("projects catalog document is malformed", err)
	}

	projects := make(map[string]Project, len(envelope.Projects))
	for id, raw := range envelope.Projects {
		cost, err := parseMoney(raw.Cost)
		if err != nil {
			return nil, errors.Inconsistencyf("project %s has an unparseable cost: %v", id, err)
		}

		effectiveness, err := parseEffectiveness(raw.Effectiveness)
		if err != nil {
			return nil, errors.Inconsistencyf("project %s has an unparseable effectiveness map: %v", id, err)
		}

		projects[id] = Project{
			ID:            id,
			Name:          raw.Name,
			Cost:          int(cost),
			Effectiveness: effectiveness,
		}
	}

	return projects, nil
}

// ParseSituations decodes a situations catalog document of the form
// {"situations": {"s1": {"description": ..., "options": {"1": {...}}}}}.
// Every situation must carry the default option so the insufficient-funds
// fallback always has somewhere to land.
func ParseSituations(doc []byte) (map[string]Situation, error) {
	var envelope struct {
		Situations map[string]rawSituation `json:"situations"`
	}
	if err := json.Unmarshal(doc, &envelope); err != nil {
		return nil, errors.WrapInconsistency("situations catalog document is malformed", err)
	}

	situations := make(map[string]Situation, len(envelope.Situations))
	for id, raw := range envelope.Situations {
		if len(raw.Options) == 0 {
			return nil, errors.Inconsistencyf("situation %s has no options", id)
		}
		if _, ok := raw.Options[DefaultOptionID]; !ok {
			return nil, errors.Inconsistencyf("situation %s is missing the default option %q", id, DefaultOptionID)
		}

		options := make(map[string]Option, len(raw.Options))
		for optionID, rawDoc := range raw.Options {
			option, err := parseOption(optionID, rawDoc)
			if err != nil {
				return nil, errors.Inconsistencyf("situation %s option %s: %v", id, optionID, err)
			}
			options[optionID] = option
		}

		situations[id] = Situation{
			ID:          id,
			Description: raw.Description,
			Options:     options,
		}
	}

	return situations, nil
}

func parseOption(id string, doc json.RawMessage) (Option, error) {
	var raw rawOption
	if err := json.Unmarshal(doc, &raw); err != nil {
		return Option{}, err
	}

	effect, err := parseEffect(raw)
	if err != nil {
		return Option{}, err
	}

	return Option{ID: id, Text: raw.Text, Effect: effect}, nil
}

// parseEffect decides the single effect kind an option carries. A control
// payload whose trailing element is numeric means "suspend these controls
// for N minutes"; an all-string payload marks them obsolete for good.
func parseEffect(raw rawOption) (Effect, error) {
	switch {
	case len(raw.Cost) > 0:
		cost, err := parseMoney(raw.Cost)
		if err != nil {
			return Effect{}, err
		}
		return Effect{Kind: EffectCost, Cost: cost}, nil

	case len(raw.Control) > 0:
		var payload []json.RawMessage
		if err := json.Unmarshal(raw.Control, &payload); err != nil {
			return Effect{}, err
		}
		if len(payload) == 0 {
			return Effect{}, errors.Inconsistencyf("control effect payload is empty")
		}

		if minutes, err := parseNumber(payload[len(payload)-1]); err == nil {
			ids, err := parseStringList(payload[:len(payload)-1])
			if err != nil {
				return Effect{}, err
			}
			if len(ids) == 0 {
				return Effect{}, errors.Inconsistencyf("affected-controls payload names no controls")
			}
			return Effect{Kind: EffectAffectedControls, ControlIDs: ids, AffectedMinutes: int(minutes)}, nil
		}

		ids, err := parseStringList(payload)
		if err != nil {
			return Effect{}, err
		}
		return Effect{Kind: EffectObsoleteControls, ControlIDs: ids}, nil

	case len(raw.Downtime) > 0:
		minutes, err := parseNumber(raw.Downtime)
		if err != nil {
			return Effect{}, err
		}
		return Effect{Kind: EffectDowntime, DowntimeMinutes: int(minutes)}, nil

	default:
		return Effect{}, errors.Inconsistencyf("option carries no cost, control, or downtime effect")
	}
}

func parseStringList(payload []json.RawMessage) ([]string, error) {
	ids := make([]string, 0, len(payload))
	for _, element := range payload {
		var id string
		if err := json.Unmarshal(element, &id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseMoney accepts 200, "200" and "$200".
func parseMoney(raw json.RawMessage) (float64, error) {
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return 0, err
	}

	asString = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(asString), "$"))
	return strconv.ParseFloat(asString, 64)
}

// parseNumber accepts 8 and "8".
func parseNumber(raw json.RawMessage) (float64, error) {
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(asString), 64)
}

// parseEffectiveness converts {"t1": "50%"} into {"t1": 0.5}. Values
// outside [0,100]% are rejected rather than clamped.
func parseEffectiveness(raw map[string]string) (map[string]float64, error) {
	effectiveness := make(map[string]float64, len(raw))
	for threatID, value := range raw {
		trimmed := strings.TrimSuffix(strings.TrimSpace(value), "%")
		percent, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, err
		}
		if percent < 0 || percent > 100 {
			return nil, errors.Inconsistencyf("effectiveness %q against %s is out of range", value, threatID)
		}
		effectiveness[threatID] = percent / 100
	}
	return effectiveness, nil
}
