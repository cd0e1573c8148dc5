package sync

import (
	"fmt"
	"strings"
)

// Params configures one orchestrator run: which fields to sync and how
// to handle conflicts.
type Params struct {
	Commands            bool
	Skills              bool
	MCPServers          bool
	Preferences         bool
	Hooks               bool
	Agents              bool
	Instructions        bool
	DryRun              bool
	Force               bool
	SkipExistingCommands bool
	IncludeMarketplace  bool
}

// Sync reads every field requested in params from src and writes it to
// dst, skipping fields unsupported by either side. One field's failure
// does not abort the rest; only an unrecoverable filesystem error from
// a write call aborts early, returning the partial report alongside it.
func Sync(src, dst Adapter, params Params) (Report, error) {
	report := Report{Fields: map[string]FieldReport{}, Success: true}

	type step struct {
		field string
		run   func() (WriteReport, error)
	}

	steps := []step{
		{FieldCommands, func() (WriteReport, error) { return syncCommands(src, dst, params) }},
		{FieldSkills, func() (WriteReport, error) {
			return syncField(src.Capabilities().Skills, dst.Capabilities().Skills, FieldSkills,
				src.ReadSkills, dst.WriteSkills, params.DryRun)
		}},
		{FieldMCPServers, func() (WriteReport, error) {
			return syncField(src.Capabilities().MCPServers, dst.Capabilities().MCPServers, FieldMCPServers,
				src.ReadMCPServers, dst.WriteMCPServers, params.DryRun)
		}},
		{FieldPreferences, func() (WriteReport, error) { return syncPreferences(src, dst, params) }},
		{FieldHooks, func() (WriteReport, error) {
			return syncField(src.Capabilities().Hooks, dst.Capabilities().Hooks, FieldHooks,
				src.ReadHooks, dst.WriteHooks, params.DryRun)
		}},
		{FieldAgents, func() (WriteReport, error) { return syncAgents(src, dst, params) }},
		{FieldInstructions, func() (WriteReport, error) {
			return syncField(src.Capabilities().Instructions, dst.Capabilities().Instructions, FieldInstructions,
				src.ReadInstructions, dst.WriteInstructions, params.DryRun)
		}},
	}

	requested := map[string]bool{
		FieldCommands:     params.Commands,
		FieldSkills:       params.Skills,
		FieldMCPServers:   params.MCPServers,
		FieldPreferences:  params.Preferences,
		FieldHooks:        params.Hooks,
		FieldAgents:       params.Agents,
		FieldInstructions: params.Instructions,
	}

	var summary []string
	for _, st := range steps {
		if !requested[st.field] {
			continue
		}
		rep, err := st.run()
		if err != nil {
			report.Success = false
			report.Summary = fmt.Sprintf("aborted during %s: %v", st.field, err)
			return report, err
		}
		report.Fields[st.field] = rep
		summary = append(summary, fmt.Sprintf("%s: %d written, %d skipped", st.field, rep.Written, len(rep.Skipped)))
	}
	report.Summary = strings.Join(summary, "; ")
	return report, nil
}

// syncField is the common shape: both sides must support the field,
// read from src, write to dst.
func syncField[T any](srcSupports, dstSupports bool, field string, read func() ([]T, error), write func([]T, bool) (WriteReport, error), dryRun bool) (WriteReport, error) {
	if !srcSupports || !dstSupports {
		return WriteReport{Skipped: []SkipReason{{Kind: SkipUnsupported, Field: field}}}, nil
	}
	items, err := read()
	if err != nil {
		return WriteReport{}, fmt.Errorf("sync: read %s: %w", field, err)
	}
	return write(items, dryRun)
}

func syncCommands(src, dst Adapter, params Params) (WriteReport, error) {
	if !src.Capabilities().Commands || !dst.Capabilities().Commands {
		return WriteReport{Skipped: []SkipReason{{Kind: SkipUnsupported, Field: FieldCommands}}}, nil
	}
	items, err := src.ReadCommands()
	if err != nil {
		return WriteReport{}, fmt.Errorf("sync: read commands: %w", err)
	}

	if params.SkipExistingCommands && !params.Force {
		existing, err := dst.ReadCommands()
		if err != nil {
			return WriteReport{}, fmt.Errorf("sync: read existing commands: %w", err)
		}
		existingNames := make(map[string]bool, len(existing))
		for _, c := range existing {
			existingNames[c.Name] = true
		}
		var filtered []Command
		rep := WriteReport{}
		for _, c := range items {
			if existingNames[c.Name] {
				rep.Skipped = append(rep.Skipped, SkipReason{Kind: SkipWouldOverwrite, Item: c.Name, Field: FieldCommands})
				continue
			}
			filtered = append(filtered, c)
		}
		written, err := dst.WriteCommands(filtered, params.DryRun)
		if err != nil {
			return rep, err
		}
		written.Skipped = append(written.Skipped, rep.Skipped...)
		return written, nil
	}

	return dst.WriteCommands(items, params.DryRun)
}

func syncPreferences(src, dst Adapter, params Params) (WriteReport, error) {
	if !src.Capabilities().Preferences || !dst.Capabilities().Preferences {
		return WriteReport{Skipped: []SkipReason{{Kind: SkipUnsupported, Field: FieldPreferences}}}, nil
	}
	p, err := src.ReadPreferences()
	if err != nil {
		return WriteReport{}, fmt.Errorf("sync: read preferences: %w", err)
	}
	return dst.WritePreferences(p, params.DryRun)
}

// syncAgents writes agents through dst.WriteAgents when dst supports
// them; the Codex adapter does so itself by storing each agent as
// skills/agent-<name>/SKILL.md, and its ReadAgents strips the prefix
// again. When dst has no native agent support but does support skills,
// agents are written through WriteSkills as "agent-<name>/SKILL.md"
// entries instead.
func syncAgents(src, dst Adapter, params Params) (WriteReport, error) {
	if !src.Capabilities().Agents {
		return WriteReport{Skipped: []SkipReason{{Kind: SkipUnsupported, Field: FieldAgents}}}, nil
	}
	if dst.Capabilities().Agents {
		return syncField(true, true, FieldAgents, src.ReadAgents, dst.WriteAgents, params.DryRun)
	}
	if !dst.Capabilities().Skills {
		return WriteReport{Skipped: []SkipReason{{Kind: SkipUnsupported, Field: FieldAgents}}}, nil
	}
	agents, err := src.ReadAgents()
	if err != nil {
		return WriteReport{}, fmt.Errorf("sync: read agents: %w", err)
	}
	emulated := make([]SkillFile, 0, len(agents))
	for _, a := range agents {
		emulated = append(emulated, SkillFile{
			Name: agentSkillPrefix + a.Name,
			Raw:  a.Raw,
			Hash: a.Hash,
		})
	}
	rep, err := dst.WriteSkills(emulated, params.DryRun)
	if err != nil {
		return rep, fmt.Errorf("sync: write emulated agents: %w", err)
	}
	for i := range rep.Skipped {
		rep.Skipped[i].Field = FieldAgents
	}
	return rep, nil
}
