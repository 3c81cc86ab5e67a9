// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// 数値テーブル層のステータスコード（特徴量数の不整合、データ範囲外、メモリ確保失敗など）を
// 構造化されたエラー型として表現します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("numtable-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// これにより、DataConversionWarningなどのカスタム警告の処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// DataConversionWarning はデータの型が暗黙的に変換された場合に発生する警告です。
// 例えば、CSVの連続値フィールドが数値として解釈できずNaNに置き換えられた場合など。
type DataConversionWarning struct {
	FromType string
	ToType   string
	Reason   string
}

func (w *DataConversionWarning) Error() string {
	return fmt.Sprintf("data converted from %s to %s. Reason: %s", w.FromType, w.ToType, w.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("from_type", w.FromType).
		Str("to_type", w.ToType).
		Str("reason", w.Reason).
		Str("type", "DataConversionWarning")
}

// NewDataConversionWarning は新しいDataConversionWarningを作成します。
func NewDataConversionWarning(from, to, reason string) *DataConversionWarning {
	return &DataConversionWarning{FromType: from, ToType: to, Reason: reason}
}

// ===========================================================================
//
//	テーブル層のステータスコード
//
// ===========================================================================

// Code はテーブル操作の失敗種別です。
type Code int

const (
	// IncorrectNumberOfFeatures は列インデックスや列数が不正な場合です。
	IncorrectNumberOfFeatures Code = iota + 1
	// IncorrectNumberOfObservations は行数が不正（0行の確保、短すぎるバッファ）な場合です。
	IncorrectNumberOfObservations
	// IncorrectDataRange はオフセットが構造体サイズを超える場合です。
	IncorrectDataRange
	// MemoryAllocationFailed はメモリ確保に失敗した場合です。
	MemoryAllocationFailed
	// DataTypeNotSupported は要求された型変換が定義されていない場合です。
	DataTypeNotSupported
	// NotAllocated は未確保のテーブルから読み出そうとした場合です。
	NotAllocated
	// IncorrectParameter は引数の値が不正な場合です。
	IncorrectParameter
	// IncorrectSerialization はシリアライズ形式が壊れている場合です。
	IncorrectSerialization
)

// String はコード名を返します。
func (c Code) String() string {
	switch c {
	case IncorrectNumberOfFeatures:
		return "IncorrectNumberOfFeatures"
	case IncorrectNumberOfObservations:
		return "IncorrectNumberOfObservations"
	case IncorrectDataRange:
		return "IncorrectDataRange"
	case MemoryAllocationFailed:
		return "MemoryAllocationFailed"
	case DataTypeNotSupported:
		return "DataTypeNotSupported"
	case NotAllocated:
		return "NotAllocated"
	case IncorrectParameter:
		return "IncorrectParameter"
	case IncorrectSerialization:
		return "IncorrectSerialization"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// TableError はテーブル層の操作が失敗した場合のエラーです。
// Opは失敗した操作名、Detailは人間向けの補足情報です。
type TableError struct {
	Op     string
	Code   Code
	Detail string
}

func (e *TableError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("numtable: %s: %s: %s", e.Op, e.Code, e.Detail)
	}
	return fmt.Sprintf("numtable: %s: %s", e.Op, e.Code)
}

// Is はコードが一致する場合にtrueを返します。
// これにより errors.Is(err, ErrIncorrectDataRange) のような比較ができます。
func (e *TableError) Is(target error) bool {
	t, ok := target.(*TableError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *TableError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("code", e.Code.String()).
		Str("detail", e.Detail).
		Str("type", "TableError")
}

// NewTableError は新しいTableErrorを作成し、スタックトレースを付与します。
func NewTableError(op string, code Code, detail string) error {
	err := &TableError{Op: op, Code: code, Detail: detail}
	return errors.WithStack(err)
}

// NewTableErrorf はフォーマット済みの詳細を持つTableErrorを作成します。
func NewTableErrorf(op string, code Code, format string, args ...interface{}) error {
	return NewTableError(op, code, fmt.Sprintf(format, args...))
}

// HasCode はエラーチェーンに指定コードのTableErrorが含まれるかを判定します。
func HasCode(err error, code Code) bool {
	var te *TableError
	if !errors.As(err, &te) {
		return false
	}
	return te.Code == code
}

// CodeOf はエラーチェーン内の最初のTableErrorのコードを返します。見つからなければ0です。
func CodeOf(err error) Code {
	var te *TableError
	if errors.As(err, &te) {
		return te.Code
	}
	return 0
}

// 比較用のセンチネル値です。errors.Isで使用します。
var (
	ErrIncorrectNumberOfFeatures     = &TableError{Code: IncorrectNumberOfFeatures}
	ErrIncorrectNumberOfObservations = &TableError{Code: IncorrectNumberOfObservations}
	ErrIncorrectDataRange            = &TableError{Code: IncorrectDataRange}
	ErrMemoryAllocationFailed        = &TableError{Code: MemoryAllocationFailed}
	ErrDataTypeNotSupported          = &TableError{Code: DataTypeNotSupported}
	ErrNotAllocated                  = &TableError{Code: NotAllocated}
	ErrIncorrectParameter            = &TableError{Code: IncorrectParameter}
	ErrIncorrectSerialization        = &TableError{Code: IncorrectSerialization}
)

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError は未学習の変換器で `Transform` などを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("numtable: %s: this transformer is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("numtable: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("numtable: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("numtable: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// Combine は二つのエラーを結合します。最初のエラーが主エラーとして残り、
// 後続のエラーは付加情報として保持されます。どちらかがnilならもう一方を返します。
func Combine(first, second error) error {
	return errors.CombineErrors(first, second)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrNotImplemented は機能が未実装の場合のエラーです。
	ErrNotImplemented = New("not implemented")

	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")
)
