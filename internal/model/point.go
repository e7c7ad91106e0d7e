package model

// SampleMode selects the stage-2 point sampling design.
type SampleMode string

const (
	ModeRandom     SampleMode = "random"
	ModeStratified SampleMode = "stratified"
)

// SamplePoint is one pixel drawn in stage 2. Points are write-once: the
// sampler creates them and the inclusion tracker completes the design fields.
type SamplePoint struct {
	ID         int  `json:"id"`
	TileID     *int `json:"tile_id,omitempty"` // nil in stratified mode
	Row        int  `json:"row"`
	Col        int  `json:"col"`
	ClassValue int  `json:"class_value"`

	InclusionProb2 float64 `json:"inclusion_prob_2"`
	PopulationSize int     `json:"population_size"`

	Stage1             *Stage1Info `json:"stage1,omitempty"`
	FinalInclusionProb float64     `json:"final_inclusion_prob"`
}

// InclusionProb1 returns the stage-1 probability, or 0 when stage 1 is not
// attached to the point.
func (p *SamplePoint) InclusionProb1() float64 {
	if p.Stage1 == nil {
		return 0
	}
	return p.Stage1.InclusionProb1
}

// Weight returns the design weight 1/pi for Horvitz-Thompson estimation.
func (p *SamplePoint) Weight() float64 {
	if p.FinalInclusionProb == 0 {
		return 0
	}
	return 1 / p.FinalInclusionProb
}

// ClassSummary describes the stage-2 draw for one raster class.
type ClassSummary struct {
	Class          int     `json:"class" yaml:"class"`
	Requested      int     `json:"requested" yaml:"requested"`
	Drawn          int     `json:"drawn" yaml:"drawn"`
	Population     int     `json:"population" yaml:"population"`
	InclusionProb2 float64 `json:"inclusion_prob_2" yaml:"inclusion_prob_2"`
	Clamped        bool    `json:"clamped" yaml:"clamped"`
}
