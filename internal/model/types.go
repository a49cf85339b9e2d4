package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Entity is one population member. Scalars are kept inside their Bounds
// after every public operation that touches them.
type Entity struct {
	ID         string   `json:"id"`
	Generation int      `json:"generation"`
	ParentIDs  []string `json:"parent_ids,omitempty"`

	Capability          float64 `json:"capability"`
	Reflection          float64 `json:"reflection"`
	MetaReflection      float64 `json:"meta_reflection"`
	ProblemSolving      float64 `json:"problem_solving"`
	CrossDomainTransfer float64 `json:"cross_domain_transfer"`
	Abstraction         float64 `json:"abstraction"`
	LearningRate        float64 `json:"learning_rate"`
	MetaLearningRate    float64 `json:"meta_learning_rate"`

	SubCapabilities []SubCapability    `json:"sub_capabilities"`
	Domains         map[string]float64 `json:"domains"`

	EvolutionsApplied      int `json:"evolutions_applied"`
	ProblemsSolved         int `json:"problems_solved"`
	ChildrenSpawned        int `json:"children_spawned"`
	CrossDomainConnections int `json:"cross_domain_connections"`

	History  []HistoryEntry `json:"history,omitempty"`
	Insights []Insight      `json:"insights,omitempty"`
}

type SubCapability struct {
	Name            string  `json:"name"`
	Depth           float64 `json:"depth"`
	Abstraction     float64 `json:"abstraction"`
	Transferability float64 `json:"transferability"`
	Emergence       float64 `json:"emergence"`
}

// Power is the product of the four sub-capability scalars.
func (s SubCapability) Power() float64 {
	return s.Depth * s.Abstraction * s.Transferability * s.Emergence
}

type HistoryEntry struct {
	Evolution      int     `json:"evolution"`
	Domain         string  `json:"domain"`
	Success        bool    `json:"success"`
	Experience     float64 `json:"experience"`
	Capability     float64 `json:"capability"`
	Reflection     float64 `json:"reflection"`
	MetaReflection float64 `json:"meta_reflection"`
}

type Insight struct {
	Evolution int     `json:"evolution"`
	Domain    string  `json:"domain"`
	Depth     float64 `json:"depth"`
	Threshold float64 `json:"threshold"`
}

// Problem is one synthetic task drawn from the domain taxonomy.
type Problem struct {
	Domain          string  `json:"domain"`
	SubTopic        string  `json:"sub_topic"`
	SecondaryDomain string  `json:"secondary_domain,omitempty"`
	Complexity      float64 `json:"complexity"`
	Abstraction     float64 `json:"abstraction"`
	CognitiveLoad   float64 `json:"cognitive_load"`
	Novelty         float64 `json:"novelty"`
}

func (p Problem) CrossDomain() bool {
	return p.SecondaryDomain != ""
}

// Outcome is the result of one solve attempt; an unsuccessful attempt is
// data, not an error.
type Outcome struct {
	EntityID       string  `json:"entity_id"`
	Success        bool    `json:"success"`
	Probability    float64 `json:"probability"`
	Complexity     float64 `json:"complexity"`
	InsightQuality float64 `json:"insight_quality"`
	Domain         string  `json:"domain"`
	CrossDomain    bool    `json:"cross_domain"`
}

type RunRecord struct {
	VersionedRecord
	ID                string  `json:"id"`
	CreatedAtUTC      string  `json:"created_at_utc"`
	Seed              int64   `json:"seed"`
	InitialPopulation int     `json:"initial_population"`
	Cycles            int     `json:"cycles"`
	Generation        int     `json:"generation"`
	Attempts          int     `json:"attempts"`
	Solved            int     `json:"solved"`
	Created           int     `json:"created"`
	Pruned            int     `json:"pruned"`
	FinalPopulation   int     `json:"final_population"`
	BestScore         float64 `json:"best_score"`
}

type GenerationDiagnostics struct {
	Generation       int     `json:"generation"`
	PopulationSize   int     `json:"population_size"`
	BestScore        float64 `json:"best_score"`
	MeanScore        float64 `json:"mean_score"`
	MinScore         float64 `json:"min_score"`
	MeanCapability   float64 `json:"mean_capability"`
	MaxCapability    float64 `json:"max_capability"`
	Attempts         int     `json:"attempts"`
	Solved           int     `json:"solved"`
	Spawned          int     `json:"spawned"`
	Pruned           int     `json:"pruned"`
	Breakthroughs    int     `json:"breakthroughs"`
	PhaseTransitions int     `json:"phase_transitions"`
}

type LineageRecord struct {
	VersionedRecord
	EntityID   string   `json:"entity_id"`
	ParentIDs  []string `json:"parent_ids,omitempty"`
	Generation int      `json:"generation"`
	Operation  string   `json:"operation"`
}

type TopEntityRecord struct {
	Rank   int     `json:"rank"`
	Score  float64 `json:"score"`
	Entity Entity  `json:"entity"`
}

// Counters are cumulative loop totals. Solved counts every successful
// attempt, including those by entities later pruned.
type Counters struct {
	Cycles           int `json:"cycles"`
	Attempts         int `json:"attempts"`
	Solved           int `json:"solved"`
	Created          int `json:"created"`
	Spawned          int `json:"spawned"`
	Pruned           int `json:"pruned"`
	CrossDomain      int `json:"cross_domain"`
	Consultations    int `json:"consultations"`
	Breakthroughs    int `json:"breakthroughs"`
	PhaseTransitions int `json:"phase_transitions"`
}
