package network

import (
	"fmt"
	"math"
)

// NodeRecord is one row of the per-node ingestion table. Power contributions
// are physical (MW / MVAr); conversion to per-unit happens in BuildGraph.
type NodeRecord struct {
	ID       int      `json:"id"`
	Name     string   `json:"name,omitempty"`
	VnKV     float64  `json:"vn_kv"`
	LoadMW   float64  `json:"load_mw"`
	GenMW    float64  `json:"gen_mw"`
	LoadMVAr float64  `json:"load_mvar"`
	GenMVAr  float64  `json:"gen_mvar"`
	VMinPU   *float64 `json:"v_min_pu,omitempty"`
	VMaxPU   *float64 `json:"v_max_pu,omitempty"`
}

// LineRecord is one row of the per-line ingestion table. Impedances are
// per-length in ohm/km; MaxIKA is the optional thermal rating.
type LineRecord struct {
	From      int      `json:"from"`
	To        int      `json:"to"`
	Name      string   `json:"name,omitempty"`
	LengthKM  float64  `json:"length_km"`
	ROhmPerKM float64  `json:"r_ohm_per_km"`
	XOhmPerKM float64  `json:"x_ohm_per_km"`
	MaxIKA    *float64 `json:"max_i_ka,omitempty"`
}

// TransformerRecord is a two-winding transformer between an HV and an LV bus.
type TransformerRecord struct {
	HVBus int    `json:"hv_bus"`
	LVBus int    `json:"lv_bus"`
	Name  string `json:"name,omitempty"`
}

// Transformer3WRecord is a three-winding transformer. It expands into two
// graph branches, hv-mv and hv-lv, mirroring how the star point collapses.
type Transformer3WRecord struct {
	HVBus int    `json:"hv_bus"`
	MVBus int    `json:"mv_bus"`
	LVBus int    `json:"lv_bus"`
	Name  string `json:"name,omitempty"`
}

// BuildGraph assembles an annotated Graph from ingestion records and performs
// all per-unit conversions against sBase.
//
// Net node power is load minus generation divided by sBase, so consumption is
// positive and production negative. A line with zero or NaN total reactance
// has no derivable susceptance and is rejected with a DataError. Lines
// without a thermal rating receive the wide default current bound instead of
// failing. Transformers keep a nil susceptance but remain graph edges so that
// connectivity and boundary traversal still see them.
func BuildGraph(sBase float64, nodes []NodeRecord, lines []LineRecord, trafos []TransformerRecord, trafo3ws []Transformer3WRecord) (*Graph, error) {
	if sBase <= 0 {
		return nil, &DataError{Element: "graph", Field: "s_base", Message: "base power must be positive"}
	}
	g := NewGraph(sBase)

	for _, r := range nodes {
		if r.VnKV <= 0 {
			return nil, &DataError{
				Element: fmt.Sprintf("node %d", r.ID),
				Field:   "vn_kv",
				Message: "nominal voltage must be positive",
			}
		}
		pLoad := r.LoadMW / sBase
		pGen := r.GenMW / sBase
		qLoad := r.LoadMVAr / sBase
		qGen := r.GenMVAr / sBase
		n := Node{
			ID:     r.ID,
			Label:  r.Name,
			VnKV:   r.VnKV,
			PLoad:  pLoad,
			PGen:   pGen,
			P:      pLoad - pGen,
			QLoad:  qLoad,
			QGen:   qGen,
			Q:      qLoad - qGen,
			VMinPU: r.VMinPU,
			VMaxPU: r.VMaxPU,
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}

	for _, r := range lines {
		el := fmt.Sprintf("line (%d,%d)", r.From, r.To)
		from, ok := g.Node(r.From)
		if !ok {
			return nil, &DataError{Element: el, Message: fmt.Sprintf("endpoint %d is not a known node", r.From)}
		}
		xOhm := r.XOhmPerKM * r.LengthKM
		rOhm := r.ROhmPerKM * r.LengthKM
		if xOhm == 0 || math.IsNaN(xOhm) {
			return nil, &DataError{Element: el, Field: "x_ohm", Message: "zero or missing reactance, susceptance undefined"}
		}
		zBase := ZBaseOhm(from.VnKV, sBase)
		bPU := SusceptancePU(from.VnKV, xOhm, sBase)

		iMax := DefaultCurrentBoundPU
		if r.MaxIKA != nil && !math.IsNaN(*r.MaxIKA) {
			iMax = CurrentPU(*r.MaxIKA, sBase, from.VnKV)
		}

		e := Edge{
			U:        r.From,
			V:        r.To,
			Kind:     KindLine,
			Name:     r.Name,
			LengthKM: r.LengthKM,
			XOhm:     xOhm,
			ROhm:     rOhm,
			MaxIKA:   r.MaxIKA,
			BPU:      &bPU,
			RPU:      rOhm / zBase,
			XPU:      xOhm / zBase,
			IMinPU:   -iMax,
			IMaxPU:   iMax,
		}
		if err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}

	for _, r := range trafos {
		e := Edge{
			U:      r.HVBus,
			V:      r.LVBus,
			Kind:   KindTransformer,
			Name:   r.Name,
			IMinPU: -DefaultCurrentBoundPU,
			IMaxPU: DefaultCurrentBoundPU,
		}
		if err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}

	for _, r := range trafo3ws {
		branches := []struct {
			u, v   int
			suffix string
		}{
			{r.HVBus, r.MVBus, "hv_mv"},
			{r.HVBus, r.LVBus, "hv_lv"},
		}
		for _, br := range branches {
			e := Edge{
				U:      br.u,
				V:      br.v,
				Kind:   KindTransformer3W,
				Name:   fmt.Sprintf("%s_%s", r.Name, br.suffix),
				IMinPU: -DefaultCurrentBoundPU,
				IMaxPU: DefaultCurrentBoundPU,
			}
			if err := g.AddEdge(e); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}
