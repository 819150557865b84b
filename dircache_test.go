package dircache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/warehouse/sales", "/warehouse/sales"},
		{"/warehouse/sales/", "/warehouse/sales"},
		{"/warehouse//sales/./orders/..", "/warehouse/sales"},
		{"hdfs://namenode:8020/warehouse/sales/", "hdfs://namenode:8020/warehouse/sales"},
		{"s3://bucket/a//b", "s3://bucket/a/b"},
		{"relative/dir/", "relative/dir"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePath(tt.in), "NormalizePath(%q)", tt.in)
	}
}

func TestFileInfoName(t *testing.T) {
	assert.Equal(t, "part-00000", FileInfo{Path: "/warehouse/t/part-00000"}.Name())
}

func TestTableSchemaTableName(t *testing.T) {
	table := Table{SchemaName: "Sales", TableName: "Orders"}
	assert.Equal(t, NewSchemaTableName("sales", "orders"), table.SchemaTableName())
}
