package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/numtable/pkg/errors"
)

// SaveModel は学習済みの変換器をgob形式でファイルに保存する
//
// パラメータ:
//   - model: 保存する変換器（StateManagerを持つ構造体のポインタ）
//   - filename: 保存先のファイルパス
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScalerDefault()
//	// ... scaler.Fit(tbl) ...
//	err := model.SaveModel(scaler, "scaler.gob")
func SaveModel(model interface{}, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer func() {
		err = errors.Combine(err, file.Close())
	}()
	return SaveModelToWriter(model, file)
}

// LoadModel はファイルから変換器を読み込む
//
// パラメータ:
//   - model: 読み込み先の変換器のポインタ
//   - filename: 読み込み元のファイルパス
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer file.Close()
	return LoadModelFromReader(model, file)
}

// SaveModelToWriter は変換器をio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerから変換器を読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
