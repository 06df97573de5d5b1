package store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"tenderlens/pkg/logger"

	"github.com/minio/minio-go/v7"
)

// PDFArchive 负责把上传的原始 PDF 按文档标识归档到 MinIO。
// 归档让 summarize 可以只凭文档名工作，无需调用方重新上传字节流。
type PDFArchive struct {
	minioClient *minio.Client
	bucket      string
	logger      *logger.Logger
}

// NewPDFArchive 创建一个新的 PDFArchive 实例。
// 它需要一个 MinIO 客户端、存储桶名称和一个日志记录器。
func NewPDFArchive(minioClient *minio.Client, bucket string, logger *logger.Logger) *PDFArchive {
	return &PDFArchive{
		minioClient: minioClient,
		bucket:      bucket,
		logger:      logger,
	}
}

// objectName 返回文档标识对应的对象名称。
func objectName(identity string) string {
	return identity + ".pdf"
}

// Put 将原始 PDF 字节写入归档。
//
// ctx: 上下文，用于控制上传操作的取消或超时。
// identity: 经过清洗的文档标识。
// pdfBytes: 原始 PDF 内容。
func (a *PDFArchive) Put(ctx context.Context, identity string, pdfBytes []byte) error {
	_, err := a.minioClient.PutObject(ctx, a.bucket, objectName(identity),
		bytes.NewReader(pdfBytes), int64(len(pdfBytes)),
		minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return fmt.Errorf("failed to archive pdf '%s': %w", identity, err)
	}
	a.logger.WithDocument(identity).Info("Archived source PDF to MinIO")
	return nil
}

// Fetch 按文档标识读取归档的 PDF 字节。
func (a *PDFArchive) Fetch(ctx context.Context, identity string) ([]byte, error) {
	obj, err := a.minioClient.GetObject(ctx, a.bucket, objectName(identity), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archived pdf '%s': %w", identity, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read archived pdf '%s': %w", identity, err)
	}
	return data, nil
}
