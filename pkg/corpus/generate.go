package corpus

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/replicatedhq/patchsmith/pkg/syntax"
)

// Complexity controls how large a generated source is.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

var (
	randomTables = []string{
		"orders", "customers", "payments", "invoices", "shipments", "events",
		"sessions", "accounts", "products", "inventory", "refunds", "clicks",
	}

	randomColumns = []string{
		"id", "created_at", "updated_at", "amount", "status", "region",
		"customer_id", "order_id", "currency", "quantity", "channel", "score",
	}

	randomTypes = []string{"BIGINT", "STRING", "DECIMAL(18,2)", "TIMESTAMP", "INT", "BOOLEAN"}

	randomFilters = []string{
		"status = 'active'", "amount > 0", "region IS NOT NULL",
		"created_at >= date_sub(current_date(), 7)", "quantity BETWEEN 1 AND 100",
	}
)

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}

func between(rng *rand.Rand, lo, hi int) int {
	return rng.Intn(hi-lo+1) + lo
}

func sectionCount(complexity Complexity) int {
	switch complexity {
	case ComplexityLow:
		return 2
	case ComplexityHigh:
		return 8
	default:
		return 4
	}
}

// GenerateSource produces a random but well-formed source file in lang.
func GenerateSource(rng *rand.Rand, lang syntax.Language, complexity Complexity) string {
	if lang == syntax.Declarative {
		return generateSQL(rng, complexity)
	}
	return generatePython(rng, complexity)
}

func generatePython(rng *rand.Rand, complexity Complexity) string {
	var builder strings.Builder

	builder.WriteString("# Generated pipeline job for testing\n")
	builder.WriteString(fmt.Sprintf("# Complexity: %s\n", complexity))
	builder.WriteString("import logging\n")
	builder.WriteString("from pyspark.sql import SparkSession\n")
	builder.WriteString("from pyspark.sql import functions as F\n\n")
	builder.WriteString("logger = logging.getLogger(__name__)\n\n")
	builder.WriteString(fmt.Sprintf("BATCH_SIZE = %d\n", between(rng, 100, 5000)))
	builder.WriteString(fmt.Sprintf("TARGET_SCHEMA = \"%s\"\n\n\n", pick(rng, []string{"analytics", "staging", "mart", "raw"})))

	tables := make([]string, 0, sectionCount(complexity))
	for i := 0; i < sectionCount(complexity); i++ {
		table := fmt.Sprintf("%s_%d", pick(rng, randomTables), i+1)
		tables = append(tables, table)

		builder.WriteString(fmt.Sprintf("def load_%s(spark):\n", table))
		builder.WriteString(fmt.Sprintf("    \"\"\"Load and clean %s.\"\"\"\n", table))
		builder.WriteString(fmt.Sprintf("    df = spark.table(\"raw.%s\")\n", table))
		for j := 0; j < between(rng, 1, 3); j++ {
			builder.WriteString(fmt.Sprintf("    df = df.filter(\"%s\")\n", pick(rng, randomFilters)))
		}
		column := pick(rng, randomColumns)
		builder.WriteString(fmt.Sprintf("    df = df.withColumn(\"%s_clean\", F.col(\"%s\"))\n", column, column))
		if rng.Float32() < 0.5 {
			builder.WriteString("    if df.rdd.isEmpty():\n")
			builder.WriteString(fmt.Sprintf("        logger.warning(\"no rows for %s\")\n", table))
			builder.WriteString("        return None\n")
		}
		builder.WriteString("    return df\n\n\n")
	}

	builder.WriteString("def main():\n")
	builder.WriteString("    spark = SparkSession.builder.getOrCreate()\n")
	for _, table := range tables {
		builder.WriteString(fmt.Sprintf("    df = load_%s(spark)\n", table))
		builder.WriteString("    if df is not None:\n")
		builder.WriteString(fmt.Sprintf("        df.write.mode(\"overwrite\").saveAsTable(f\"{TARGET_SCHEMA}.%s\")\n", table))
	}
	builder.WriteString("\n\n")
	builder.WriteString("if __name__ == \"__main__\":\n")
	builder.WriteString("    main()\n")

	return builder.String()
}

func generateSQL(rng *rand.Rand, complexity Complexity) string {
	var builder strings.Builder

	builder.WriteString("-- Generated warehouse script for testing\n")
	builder.WriteString(fmt.Sprintf("-- Complexity: %s\n\n", complexity))

	for i := 0; i < sectionCount(complexity); i++ {
		table := fmt.Sprintf("%s_%d", pick(rng, randomTables), i+1)

		builder.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS mart.%s (\n", table))
		columns := rng.Perm(len(randomColumns))[:between(rng, 3, 6)]
		for j, c := range columns {
			sep := ","
			if j == len(columns)-1 {
				sep = ""
			}
			builder.WriteString(fmt.Sprintf("  %s %s%s\n", randomColumns[c], pick(rng, randomTypes), sep))
		}
		builder.WriteString(");\n\n")

		builder.WriteString(fmt.Sprintf("INSERT INTO mart.%s\n", table))
		builder.WriteString("SELECT\n")
		for j, c := range columns {
			sep := ","
			if j == len(columns)-1 {
				sep = ""
			}
			builder.WriteString(fmt.Sprintf("  %s%s\n", randomColumns[c], sep))
		}
		builder.WriteString(fmt.Sprintf("FROM raw.%s\n", table))
		builder.WriteString(fmt.Sprintf("WHERE %s;\n\n", pick(rng, randomFilters)))
	}

	return builder.String()
}
