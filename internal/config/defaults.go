package config

const (
	// BackendFile stores the work table as a delimited text file.
	BackendFile = "file"
	// BackendSQLite stores the work table in a SQLite database.
	BackendSQLite = "sqlite"
	// BackendMemory keeps the work table in process memory (tests only).
	BackendMemory = "memory"
)

// DefaultCommandTemplate runs one docking job per row of a seeded table.
const DefaultCommandTemplate = "python src/vina_docking_parallel.py --receptor_file {REC_FILE} --config {CONFIG_FILE} --input_dir {INPUT_DIR} --output_dir {OUTPUT_DIR}"

const (
	defaultBackend          = BackendFile
	defaultDelimiter        = ","
	defaultLockPollMillis   = 50
	defaultTimeLimitSeconds = 86000
	defaultKillGraceSeconds = 10
	defaultParallel         = 1
	defaultReportRetries    = 5
	defaultOutputTailLines  = 20
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultConverter        = "mk_prepare_ligand.py"
	defaultInputSuffix      = ".mol2"
	defaultOutputSuffix     = ".pdbqt"
	defaultSplitSuffix      = ".mol2"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Store: Store{
			Backend:        defaultBackend,
			Delimiter:      defaultDelimiter,
			LockPollMillis: defaultLockPollMillis,
		},
		Worker: Worker{
			TimeLimit:        defaultTimeLimitSeconds,
			CommandTemplate:  DefaultCommandTemplate,
			KillGraceSeconds: defaultKillGraceSeconds,
			Parallel:         defaultParallel,
			ReportRetries:    defaultReportRetries,
			OutputTailLines:  defaultOutputTailLines,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Prepare: Prepare{
			Converter:    defaultConverter,
			InputSuffix:  defaultInputSuffix,
			OutputSuffix: defaultOutputSuffix,
		},
		Split: Split{
			Suffix: defaultSplitSuffix,
		},
	}
}
