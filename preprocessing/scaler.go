package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/numtable/core/model"
	"github.com/YuminosukeSato/numtable/moments"
	"github.com/YuminosukeSato/numtable/pkg/log"
	"github.com/YuminosukeSato/numtable/table"
)

// スケールがこの値未満の特徴量は定数とみなす
const constantScale = 1e-8

var (
	_ model.Transformer = (*StandardScaler)(nil)
	_ model.Transformer = (*MinMaxScaler)(nil)
)

// StandardScaler はテーブルの各列を平均0、標準偏差1に変換する
// 変換はread-writeの行ブロックを通じてその場で行われる
type StandardScaler struct {
	*model.StateManager

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差（母分散の平方根）
	Scale []float64

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	err := scaler.Fit(tbl)
//	err = scaler.Transform(tbl)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		StateManager: model.NewStateManager(),
		WithMean:     withMean,
		WithStd:      withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit はテーブルの低次モーメントから平均と標準偏差を計算する
func (s *StandardScaler) Fit(t table.NumericTable) error {
	res, err := moments.Compute(t)
	if err != nil {
		return err
	}
	c := res.Columns
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		if s.WithMean {
			s.Mean[j] = res.Mean()[j]
		}
		s.Scale[j] = 1.0
		if s.WithStd {
			// 標本数で割る母標準偏差
			std := math.Sqrt(res.Get(moments.SumSquaresCentered)[j] / float64(res.Rows))
			if std >= constantScale {
				s.Scale[j] = std
			}
		}
	}

	s.SetFitted(c, res.Rows)
	return nil
}

// Transform は学習済みの統計情報を使ってテーブルをその場で標準化する
func (s *StandardScaler) Transform(t table.NumericTable) error {
	if err := s.RequireFeatures("StandardScaler", "Transform", t.NumberOfColumns()); err != nil {
		return err
	}
	return apply(t, "StandardScaler.Transform", func(row []float64) {
		for j, v := range row {
			row[j] = (v - s.Mean[j]) / s.Scale[j]
		}
	})
}

// FitTransform は学習して同じテーブルを変換する
func (s *StandardScaler) FitTransform(t table.NumericTable) error {
	if err := s.Fit(t); err != nil {
		return err
	}
	return s.Transform(t)
}

// InverseTransform は標準化されたテーブルを元のスケールに戻す
func (s *StandardScaler) InverseTransform(t table.NumericTable) error {
	if err := s.RequireFeatures("StandardScaler", "InverseTransform", t.NumberOfColumns()); err != nil {
		return err
	}
	return apply(t, "StandardScaler.InverseTransform", func(row []float64) {
		for j, v := range row {
			row[j] = v*s.Scale[j] + s.Mean[j]
		}
	})
}

// TransformMatrix はgonumの行列をコピーして標準化する
func (s *StandardScaler) TransformMatrix(X mat.Matrix) (mat.Matrix, error) {
	return transformMatrix(X, s.Transform)
}

// GetParams はスケーラーのパラメータを取得する
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.WithMean,
		"with_std":  s.WithStd,
	}
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	n, _ := s.GetDimensions()
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, n)
}

// MinMaxScaler はテーブルの各列を指定した範囲（デフォルト[0,1]）にスケーリングする
type MinMaxScaler struct {
	*model.StateManager

	// DataMin は学習データの最小値
	DataMin []float64

	// DataMax は学習データの最大値
	DataMax []float64

	// Scale は各特徴量のスケール (max - min)
	Scale []float64

	// FeatureRange はスケーリング後の範囲 [min, max]
	FeatureRange [2]float64
}

// NewMinMaxScaler は新しいMinMaxScalerを作成する
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{
		StateManager: model.NewStateManager(),
		FeatureRange: featureRange,
	}
}

// NewMinMaxScalerDefault はデフォルト設定([0,1]範囲)でMinMaxScalerを作成する
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0.0, 1.0})
}

// Fit はテーブルの各列の最小値・最大値を計算する
func (m *MinMaxScaler) Fit(t table.NumericTable) error {
	res, err := moments.Compute(t)
	if err != nil {
		return err
	}
	c := res.Columns
	m.DataMin = append([]float64(nil), res.Minimum()...)
	m.DataMax = append([]float64(nil), res.Maximum()...)
	m.Scale = make([]float64, c)
	for j := 0; j < c; j++ {
		m.Scale[j] = m.DataMax[j] - m.DataMin[j]
		if math.Abs(m.Scale[j]) < constantScale {
			// 定数特徴量の場合、スケールを1に設定
			m.Scale[j] = 1.0
		}
	}

	m.SetFitted(c, res.Rows)
	return nil
}

// Transform は学習済みの範囲を使ってテーブルをその場でスケーリングする
func (m *MinMaxScaler) Transform(t table.NumericTable) error {
	if err := m.RequireFeatures("MinMaxScaler", "Transform", t.NumberOfColumns()); err != nil {
		return err
	}
	featureRange := m.FeatureRange[1] - m.FeatureRange[0]
	return apply(t, "MinMaxScaler.Transform", func(row []float64) {
		for j, v := range row {
			row[j] = (v-m.DataMin[j])/m.Scale[j]*featureRange + m.FeatureRange[0]
		}
	})
}

// FitTransform は学習して同じテーブルを変換する
func (m *MinMaxScaler) FitTransform(t table.NumericTable) error {
	if err := m.Fit(t); err != nil {
		return err
	}
	return m.Transform(t)
}

// InverseTransform はスケーリングされたテーブルを元の範囲に戻す
func (m *MinMaxScaler) InverseTransform(t table.NumericTable) error {
	if err := m.RequireFeatures("MinMaxScaler", "InverseTransform", t.NumberOfColumns()); err != nil {
		return err
	}
	featureRange := m.FeatureRange[1] - m.FeatureRange[0]
	return apply(t, "MinMaxScaler.InverseTransform", func(row []float64) {
		for j, v := range row {
			row[j] = (v-m.FeatureRange[0])/featureRange*m.Scale[j] + m.DataMin[j]
		}
	})
}

// TransformMatrix はgonumの行列をコピーしてスケーリングする
func (m *MinMaxScaler) TransformMatrix(X mat.Matrix) (mat.Matrix, error) {
	return transformMatrix(X, m.Transform)
}

// GetParams はスケーラーのパラメータを取得する
func (m *MinMaxScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"feature_range": m.FeatureRange,
	}
}

// String はスケーラーの文字列表現を返す
func (m *MinMaxScaler) String() string {
	if !m.IsFitted() {
		return fmt.Sprintf("MinMaxScaler(feature_range=[%.1f, %.1f])",
			m.FeatureRange[0], m.FeatureRange[1])
	}
	n, _ := m.GetDimensions()
	return fmt.Sprintf("MinMaxScaler(feature_range=[%.1f, %.1f], n_features=%d)",
		m.FeatureRange[0], m.FeatureRange[1], n)
}

// apply は各行に fn を適用する。整数列に書き戻す値は丸められる
func apply(t table.NumericTable, op string, fn func(row []float64)) error {
	err := table.ParallelRowBlocks(t, 0, table.ReadWrite, func(b *table.Block[float64]) error {
		for i := 0; i < b.NumberOfRows(); i++ {
			fn(b.Row(i))
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Component("preprocessing").Debug("transformed table",
		log.OperationKey, log.OperationTransform,
		"transformer", op,
		log.RowsKey, t.NumberOfRows(),
		log.ColumnsKey, t.NumberOfColumns(),
	)
	return nil
}

func transformMatrix(X mat.Matrix, transform func(table.NumericTable) error) (mat.Matrix, error) {
	tbl, err := table.FromDense(mat.DenseCopyOf(X))
	if err != nil {
		return nil, err
	}
	if err := transform(tbl); err != nil {
		return nil, err
	}
	out, err := table.ToDense(tbl)
	if err != nil {
		return nil, err
	}
	return out, nil
}
