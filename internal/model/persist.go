package model

import (
	"compress/zlib"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

const (
	kindPINN      = "pinn"
	kindRecurrent = "recurrent"
)

// ErrWeightsMismatch is returned when stored weights do not fit the model.
var ErrWeightsMismatch = errors.New("model: stored weights do not match the network")

type weightsFile struct {
	Kind   string         `json:"kind"`
	Params []paramWeights `json:"params"`
}

type paramWeights struct {
	Rows int      `json:"rows"`
	Cols int      `json:"cols"`
	Data []weight `json:"data"`
}

// weight is a float64 whose NaN and Inf values are stored as the strings
// "NaN", "+Inf" and "-Inf", which plain JSON numbers cannot carry.
type weight float64

func (w weight) MarshalJSON() ([]byte, error) {
	f := float64(w)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte(strconv.Quote(strconv.FormatFloat(f, 'g', -1, 64))), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

func (w *weight) UnmarshalJSON(b []byte) error {
	s := string(b)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("weight %s: %w", b, err)
	}
	*w = weight(f)
	return nil
}

// WriteWeights writes params to w as zlib-compressed JSON.
func WriteWeights(w io.Writer, kind string, params []*mat.Dense) error {
	file := weightsFile{Kind: kind}
	for _, p := range params {
		r, c := p.Dims()
		data := make([]weight, 0, r*c)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				data = append(data, weight(p.At(i, j)))
			}
		}
		file.Params = append(file.Params, paramWeights{Rows: r, Cols: c, Data: data})
	}
	zw := zlib.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(file); err != nil {
		zw.Close()
		return fmt.Errorf("encode weights: %w", err)
	}
	return zw.Close()
}

// ReadWeights loads weights written by WriteWeights into params.
func ReadWeights(r io.Reader, kind string, params []*mat.Dense) error {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return fmt.Errorf("open weights: %w", err)
	}
	defer zr.Close()

	var file weightsFile
	if err := json.NewDecoder(zr).Decode(&file); err != nil {
		return fmt.Errorf("decode weights: %w", err)
	}
	if file.Kind != kind {
		return fmt.Errorf("%w: kind %q, want %q", ErrWeightsMismatch, file.Kind, kind)
	}
	if len(file.Params) != len(params) {
		return fmt.Errorf("%w: %d tensors, want %d", ErrWeightsMismatch, len(file.Params), len(params))
	}
	for k, p := range params {
		rows, cols := p.Dims()
		stored := file.Params[k]
		if stored.Rows != rows || stored.Cols != cols || len(stored.Data) != rows*cols {
			return fmt.Errorf("%w: tensor %d is %dx%d, want %dx%d", ErrWeightsMismatch, k, stored.Rows, stored.Cols, rows, cols)
		}
	}
	for k, p := range params {
		stored := file.Params[k]
		for i := 0; i < stored.Rows; i++ {
			for j := 0; j < stored.Cols; j++ {
				p.Set(i, j, float64(stored.Data[i*stored.Cols+j]))
			}
		}
	}
	return nil
}

// WriteWeightsToFile saves s to name, replacing any existing file.
func WriteWeightsToFile(name string, s Saver) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := s.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Loader restores model parameters.
type Loader interface {
	Load(r io.Reader) error
}

// ReadWeightsFromFile restores l from name.
func ReadWeightsFromFile(name string, l Loader) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return l.Load(f)
}
