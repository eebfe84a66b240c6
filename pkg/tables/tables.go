package tables

import (
	"fmt"
	"github.com/apache/arrow/go/v18/arrow"
)

const (
	LoansName = "loans"

	ParquetExt = ".parquet"
	CSVExt     = ".csv"

	// MissingSuffix is appended to a column name to form its missing-flag column.
	MissingSuffix = "_missing"

	// IndexKey is the schema metadata key naming the table's unique key column.
	IndexKey = "index"
)

// Raw loan columns the cleaning pipeline reads or removes.
const (
	ID              = "id"
	LoanStatus      = "loan_status"
	ApplicationType = "application_type"
	IntRate         = "int_rate"
	RevolUtil       = "revol_util"
	Term            = "term"
	EmpLength       = "emp_length"
	IssueDate       = "issue_d"
	EarliestCrLine  = "earliest_cr_line"
	LastPaymentDate = "last_pymnt_d"
	ZipCode         = "zip_code"
	TotalRecPrncp   = "total_rec_prncp"
	TotalRecInt     = "total_rec_int"
	TotalPymntInv   = "total_pymnt_inv"
)

// Derived columns.
const (
	MonthsSinceEarliestCrLine = "months_since_earliest_cr_line"
	RateDiffPrefix            = "int_rate_minus_"
)

var (
	// RateColumns hold strings such as "16.37%".
	RateColumns = []string{IntRate, RevolUtil}

	// DateColumns hold month-level dates such as "Dec-15" or "5-Dec".
	DateColumns = []string{IssueDate, EarliestCrLine, LastPaymentDate}

	// DropColumns are removed from the prepared table. They either leak the
	// loan's outcome or were only needed to filter and derive other columns.
	DropColumns = []string{
		ZipCode, TotalRecPrncp, TotalRecInt, EarliestCrLine, Term,
		LastPaymentDate, TotalPymntInv, ApplicationType, IssueDate,
	}
)

// MissingName returns the name of the missing-flag column for col.
func MissingName(col string) string {
	return col + MissingSuffix
}

// DummyName returns the name of the indicator column for one level of a
// categorical column.
func DummyName(col, level string) string {
	return fmt.Sprintf("%s_%s", col, level)
}

// ColumnType names the Arrow type a raw CSV column is read as.
type ColumnType string

const (
	String  ColumnType = "string"
	Float64 ColumnType = "float64"
	Int64   ColumnType = "int64"
)

// DataType returns the Arrow type for t. Unknown types read as strings.
func (t ColumnType) DataType() arrow.DataType {
	switch t {
	case Float64:
		return arrow.PrimitiveTypes.Float64
	case Int64:
		return arrow.PrimitiveTypes.Int64
	default:
		return arrow.BinaryTypes.String
	}
}

// ColumnSpec is one entry of the column allowlist handed to the loader.
type ColumnSpec struct {
	Name string     `yaml:"name" validate:"required"`
	Type ColumnType `yaml:"type" validate:"omitempty,oneof=string float64 int64"`
}

// Field returns the nullable Arrow field for the column.
func (c ColumnSpec) Field() arrow.Field {
	return arrow.Field{
		Name:     c.Name,
		Type:     c.Type.DataType(),
		Nullable: true,
		Metadata: CommentMetadata(columnComments[c.Name]),
	}
}

// Names returns the column names of specs, in order.
func Names(specs []ColumnSpec) []string {
	result := make([]string, len(specs))
	for i, spec := range specs {
		result[i] = spec.Name
	}
	return result
}

// DefaultColumns is the allowlist of columns known at the time a loan is issued,
// plus the columns the pipeline needs to filter and derive features.
var DefaultColumns = []ColumnSpec{
	{Name: ID, Type: String},
	{Name: "loan_amnt", Type: Float64},
	{Name: Term, Type: String},
	{Name: IntRate, Type: String},
	{Name: "installment", Type: Float64},
	{Name: "grade", Type: String},
	{Name: "sub_grade", Type: String},
	{Name: EmpLength, Type: String},
	{Name: "home_ownership", Type: String},
	{Name: "annual_inc", Type: Float64},
	{Name: "verification_status", Type: String},
	{Name: IssueDate, Type: String},
	{Name: LoanStatus, Type: String},
	{Name: "purpose", Type: String},
	{Name: ZipCode, Type: String},
	{Name: "addr_state", Type: String},
	{Name: "dti", Type: Float64},
	{Name: "delinq_2yrs", Type: Float64},
	{Name: EarliestCrLine, Type: String},
	{Name: "inq_last_6mths", Type: Float64},
	{Name: "open_acc", Type: Float64},
	{Name: "pub_rec", Type: Float64},
	{Name: "revol_bal", Type: Float64},
	{Name: RevolUtil, Type: String},
	{Name: "total_acc", Type: Float64},
	{Name: TotalPymntInv, Type: Float64},
	{Name: TotalRecPrncp, Type: Float64},
	{Name: TotalRecInt, Type: Float64},
	{Name: LastPaymentDate, Type: String},
	{Name: ApplicationType, Type: String},
}

// DefaultCategoricals are expanded into indicator columns by the default enricher.
var DefaultCategoricals = []string{
	"grade", "home_ownership", "verification_status", "purpose",
}

var columnComments = map[string]string{
	ID:              "A unique identifier for the loan",
	LoanStatus:      "Final status of the loan, such as Fully Paid or Charged Off",
	ApplicationType: "Whether the loan is an individual or joint application",
	IntRate:         "Interest rate on the loan, in percent",
	RevolUtil:       "Revolving line utilization rate, in percent",
	Term:            "Number of monthly payments on the loan",
	EmpLength:       "Employment length in years",
	IssueDate:       "The month the loan was funded",
	EarliestCrLine:  "The month the borrower's earliest credit line was opened",
	LastPaymentDate: "The month the last payment was received",
	ZipCode:         "First three digits of the borrower's zip code",
	TotalRecPrncp:   "Principal received to date",
	TotalRecInt:     "Interest received to date",
	TotalPymntInv:   "Payments received to date for the portion funded by investors",

	MonthsSinceEarliestCrLine: "Whole months between the earliest credit line and the issue date",
}

// Comment returns the description of a known column, or "" if there is none.
func Comment(name string) string {
	return columnComments[name]
}
