package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"lgp/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// programEncMode is a canonical CBOR encoder: the same program always
// serializes to the same bytes, so blobs can be compared directly.
var programEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("storage: build cbor enc mode: %v", err))
	}
	programEncMode = em
}

func EncodeProgram(p model.Program) ([]byte, error) {
	return json.Marshal(p)
}

func DecodeProgram(data []byte) (model.Program, error) {
	var p model.Program
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Program{}, err
	}
	if err := checkVersion(p.VersionedRecord); err != nil {
		return model.Program{}, err
	}
	return p, nil
}

// EncodeProgramBlob produces the compact binary form used for stored program
// payloads and run artifacts.
func EncodeProgramBlob(p model.Program) ([]byte, error) {
	return programEncMode.Marshal(p)
}

func DecodeProgramBlob(data []byte) (model.Program, error) {
	var p model.Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return model.Program{}, err
	}
	if err := checkVersion(p.VersionedRecord); err != nil {
		return model.Program{}, err
	}
	return p, nil
}

func EncodePopulation(p model.Population) ([]byte, error) {
	return json.Marshal(p)
}

func DecodePopulation(data []byte) (model.Population, error) {
	var population model.Population
	if err := json.Unmarshal(data, &population); err != nil {
		return model.Population{}, err
	}
	if err := checkVersion(population.VersionedRecord); err != nil {
		return model.Population{}, err
	}
	return population, nil
}

func EncodeEnvSummary(s model.EnvSummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeEnvSummary(data []byte) (model.EnvSummary, error) {
	var summary model.EnvSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.EnvSummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.EnvSummary{}, err
	}
	return summary, nil
}

func EncodeFitnessHistory(history []float64) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeFitnessHistory(data []byte) ([]float64, error) {
	var history []float64
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func EncodeGenerationDiagnostics(diagnostics []model.GenerationDiagnostics) ([]byte, error) {
	return json.Marshal(diagnostics)
}

func DecodeGenerationDiagnostics(data []byte) ([]model.GenerationDiagnostics, error) {
	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, err
	}
	return diagnostics, nil
}

func EncodeTopPrograms(top []model.TopProgramRecord) ([]byte, error) {
	return json.Marshal(top)
}

func DecodeTopPrograms(data []byte) ([]model.TopProgramRecord, error) {
	var top []model.TopProgramRecord
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	for _, record := range top {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return top, nil
}

// Stamp fills in the current schema and codec versions.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
