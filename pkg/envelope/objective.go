package envelope

// EmitObjective installs the objective for the requested run kind.
//
// OPF minimizes weighted curtailment: the network is operated to deliver as
// much of the requested power as the physics allow, with no envelope.
//
// DOE maximizes envelope_volume - alpha*curtailment_budget -
// beta*envelope_center_gap: the widest safe envelopes, discounted by the
// curtailment they require and by their distance from the boundary estimate.
func (m *Model) EmitObjective() error {
	switch m.Objective {
	case ObjectiveOPF:
		weight := m.params.alpha
		if weight == 0 {
			weight = 1
		}
		m.Prog.Maximize = false
		m.Prog.SetCost(m.Vars.CurtailmentBudget(), weight)
	case ObjectiveDOE:
		m.Prog.Maximize = true
		m.Prog.SetCost(m.Vars.EnvelopeVolume(), 1)
		m.Prog.SetCost(m.Vars.CurtailmentBudget(), -m.params.alpha)
		m.Prog.SetCost(m.Vars.EnvelopeCenterGap(), -m.params.beta)
	}
	return nil
}
