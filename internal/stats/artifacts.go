package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"emergence/internal/model"
)

const (
	runFile         = "run.json"
	diagnosticsFile = "generation_diagnostics.json"
	lineageFile     = "lineage.json"
	topFile         = "top_entities.json"
	seriesFile      = "generation_series.csv"
)

var seriesHeader = []string{"generation", "population", "best_score", "mean_score", "mean_capability", "solved", "attempts"}

// RunArtifacts is the exported view of one archived run.
type RunArtifacts struct {
	Run         model.RunRecord
	Diagnostics []model.GenerationDiagnostics
	Lineage     []model.LineageRecord
	Top         []model.TopEntityRecord
}

// SeriesPoint is one row of the generation series CSV.
type SeriesPoint struct {
	Generation     int
	Population     int
	BestScore      float64
	MeanScore      float64
	MeanCapability float64
	Solved         int
	Attempts       int
}

// WriteRunArtifacts writes a run's records under outDir/<run id> and
// returns that directory.
func WriteRunArtifacts(outDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}
	runDir := filepath.Join(outDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	files := []struct {
		name  string
		value any
	}{
		{runFile, artifacts.Run},
		{diagnosticsFile, artifacts.Diagnostics},
		{lineageFile, artifacts.Lineage},
		{topFile, artifacts.Top},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(runDir, f.name), f.value); err != nil {
			return "", fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	if err := writeSeries(filepath.Join(runDir, seriesFile), artifacts.Diagnostics); err != nil {
		return "", fmt.Errorf("write %s: %w", seriesFile, err)
	}
	return runDir, nil
}

// ReadRunRecord loads run.json from an exported run directory.
func ReadRunRecord(runDir string) (model.RunRecord, bool, error) {
	data, err := os.ReadFile(filepath.Join(runDir, runFile))
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, false, err
	}
	return run, true, nil
}

func writeSeries(path string, diagnostics []model.GenerationDiagnostics) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(seriesHeader); err != nil {
		return err
	}
	for _, d := range diagnostics {
		if err := writer.Write([]string{
			strconv.Itoa(d.Generation),
			strconv.Itoa(d.PopulationSize),
			strconv.FormatFloat(d.BestScore, 'f', -1, 64),
			strconv.FormatFloat(d.MeanScore, 'f', -1, 64),
			strconv.FormatFloat(d.MeanCapability, 'f', -1, 64),
			strconv.Itoa(d.Solved),
			strconv.Itoa(d.Attempts),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadSeries loads generation_series.csv from an exported run directory.
func ReadSeries(runDir string) ([]SeriesPoint, bool, error) {
	file, err := os.Open(filepath.Join(runDir, seriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []SeriesPoint{}, true, nil
		}
		return nil, false, err
	}
	if len(header) != len(seriesHeader) {
		return nil, false, fmt.Errorf("generation series header must have %d columns", len(seriesHeader))
	}

	series := make([]SeriesPoint, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		point, err := parseSeriesRow(record)
		if err != nil {
			return nil, false, err
		}
		series = append(series, point)
	}
	return series, true, nil
}

func parseSeriesRow(record []string) (SeriesPoint, error) {
	var p SeriesPoint
	ints := []struct {
		dst *int
		src string
	}{{&p.Generation, record[0]}, {&p.Population, record[1]}, {&p.Solved, record[5]}, {&p.Attempts, record[6]}}
	for _, v := range ints {
		n, err := strconv.Atoi(v.src)
		if err != nil {
			return SeriesPoint{}, err
		}
		*v.dst = n
	}
	floats := []struct {
		dst *float64
		src string
	}{{&p.BestScore, record[2]}, {&p.MeanScore, record[3]}, {&p.MeanCapability, record[4]}}
	for _, v := range floats {
		f, err := strconv.ParseFloat(v.src, 64)
		if err != nil {
			return SeriesPoint{}, err
		}
		*v.dst = f
	}
	return p, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
