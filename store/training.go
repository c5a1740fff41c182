package store

// TrainingSchema tags parquet files of TrainingRow.
const TrainingSchema = "drive_train_v1"

// TrainingRow is one (state, intent) example for a quarterback model.
//
// X holds the encoded state as little-endian float32 with shape [XC, XH, XW].
// Policy is the index of the chosen intent in the model's action order.
// Value is the eventual drive outcome from the offense's side: 1 for a
// touchdown, -1 for a turnover, 0 otherwise.
type TrainingRow struct {
	GameID string `parquet:"game_id,dict"`
	Drive  int32  `parquet:"drive"`
	Tick   int32  `parquet:"tick"`

	X []byte `parquet:"x"`

	Policy int32   `parquet:"policy"`
	Value  float32 `parquet:"value"`

	XC int32 `parquet:"x_c"`
	XH int32 `parquet:"x_h"`
	XW int32 `parquet:"x_w"`

	Source string `parquet:"source,dict"`
}
