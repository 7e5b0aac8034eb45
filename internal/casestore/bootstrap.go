package casestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"pqrs/internal/concepts"
	"pqrs/internal/domain"
	"pqrs/internal/importer"
)

// DemoCases seed an empty store when no import file is configured.
var DemoCases = []domain.NewCase{
	{
		Category:    "Estados",
		ProblemText: "Cambiar estado de liquidación de vendedor y concesionario a Aprobados Jefe Coordinador",
		QueryTemplate: `SELECT * FROM Status;

UPDATE formatexceldlle
SET EstadoLiquidacionConcesionario = 77,
    EstadoLiquidacionVendedor = 77
WHERE creditnumber = '[CREDITO]';`,
		ResponseTemplate: `Se actualizaron los estados de liquidación a "Aprobados Jefe Coordinador".`,
	},
	{
		Category:    "Comisiones",
		ProblemText: "Actualizar valores de comisión para crédito específico",
		QueryTemplate: `SELECT * FROM FormatExcelDlle WHERE CreditNumber = '[CREDITO]';

UPDATE FormatExcelDlle
SET ValueCommission = [VALOR_TOTAL],
    ValueCommissionConsecionario = [VALOR_CONCES],
    ValueCommissionVendedor = [VALOR_VEND]
WHERE CreditNumber = '[CREDITO]';`,
		ResponseTemplate: "Se actualizaron los valores de comisión correctamente.",
	},
}

// Options configures seeding and importing.
type Options struct {
	// ImportPath replaces the demo set as the seed of an empty store.
	ImportPath string
	Logger     *slog.Logger
	// Concepts fills KeyConcepts for cases that come without them.
	Concepts *concepts.FrequencyExtractor
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Concepts == nil {
		o.Concepts = concepts.NewFrequencyExtractor(concepts.DefaultMaxConcepts)
	}
	return o
}

// ImportSummary reports what an import did.
type ImportSummary struct {
	Added   int
	Skipped int
}

// Bootstrap seeds store when it holds no cases and returns how many were
// added. A store that already has cases is left alone. A configured import
// file that does not exist is logged and leaves the store empty.
func Bootstrap(ctx context.Context, store domain.CaseStore, opts Options) (int, error) {
	opts = opts.withDefaults()
	n, err := store.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	if opts.ImportPath == "" {
		added, err := addAll(ctx, store, DemoCases, opts)
		if err != nil {
			return added, err
		}
		opts.Logger.Info("case store seeded with demo cases", "cases", added)
		return added, nil
	}
	sum, err := Import(ctx, store, opts.ImportPath, opts)
	if errors.Is(err, os.ErrNotExist) {
		opts.Logger.Warn("import file not found, case store stays empty", "path", opts.ImportPath)
		return 0, nil
	}
	if err != nil {
		return sum.Added, err
	}
	return sum.Added, nil
}

// Import appends every usable case of the export at path, whatever the
// store already holds. Blocks the parser skips are logged.
func Import(ctx context.Context, store domain.CaseStore, path string, opts Options) (ImportSummary, error) {
	opts = opts.withDefaults()
	f, err := os.Open(path)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("open import file: %w", err)
	}
	defer func() { _ = f.Close() }()

	res, err := importer.Parse(f)
	if err != nil {
		return ImportSummary{}, err
	}
	for _, sk := range res.Skipped {
		opts.Logger.Warn("import block skipped", "path", path, "block", sk.Index, "reason", sk.Reason)
	}
	added, err := addAll(ctx, store, res.Cases, opts)
	sum := ImportSummary{Added: added, Skipped: len(res.Skipped)}
	if err != nil {
		return sum, err
	}
	opts.Logger.Info("cases imported", "path", path, "added", sum.Added, "skipped", sum.Skipped)
	return sum, nil
}

func addAll(ctx context.Context, store domain.CaseStore, cases []domain.NewCase, opts Options) (int, error) {
	added := 0
	for _, c := range cases {
		if c.KeyConcepts == "" {
			c.KeyConcepts = opts.Concepts.Join(c.ProblemText)
		}
		if _, err := store.AddCase(ctx, c); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
