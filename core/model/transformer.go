package model

import "github.com/YuminosukeSato/numtable/table"

// Transformer はテーブルをその場で変換するインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータをテーブルから学習する
	Fit(t table.NumericTable) error

	// Transform はテーブルの値をその場で変換する
	Transform(t table.NumericTable) error

	// InverseTransform はTransformの変換を元に戻す
	InverseTransform(t table.NumericTable) error

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(t table.NumericTable) error
}
