package smtp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"

	"github.com/Uncodier/API-sub015/internal/domain"
)

// ParseEmail 解析原始邮件，提取判重所需的全部字段。
// 头部键统一转为小写，与 HTTP 入口的表示保持一致。
func ParseEmail(rawEmail []byte) (*domain.EmailRecord, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(rawEmail))
	if err != nil {
		return nil, fmt.Errorf("parse mail: %w", err)
	}

	headers := make(map[string]string, len(msg.Header))
	for key, values := range msg.Header {
		if len(values) > 0 {
			headers[strings.ToLower(key)] = values[0]
		}
	}

	record := &domain.EmailRecord{
		MessageID: strings.Trim(msg.Header.Get("Message-ID"), "<>"),
		From:      decodeHeader(msg.Header.Get("From")),
		ReplyTo:   decodeHeader(msg.Header.Get("Reply-To")),
		Subject:   decodeHeader(msg.Header.Get("Subject")),
		Headers:   headers,
	}

	if to := msg.Header.Get("To"); to != "" {
		record.To = []string{decodeHeader(to)}
	}
	if date, err := msg.Header.Date(); err == nil {
		record.Date = date.UTC()
	}

	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// 没有 Content-Type 或解析失败，当作纯文本处理
		body, _ := io.ReadAll(msg.Body)
		record.Text = string(body)
		return record, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message without boundary")
		}

		mr := multipart.NewReader(msg.Body, boundary)
		if err := parseMultipart(mr, record); err != nil {
			return nil, fmt.Errorf("parse multipart: %w", err)
		}
	} else {
		body, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"), params["charset"])
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}

		if strings.HasPrefix(mediaType, "text/html") {
			record.HTML = body
		} else {
			record.Text = body
		}
	}

	return record, nil
}

// parseMultipart 递归解析多部分邮件。判重只关心文本正文，
// 附件部分直接跳过。
func parseMultipart(mr *multipart.Reader, record *domain.EmailRecord) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		contentType := part.Header.Get("Content-Type")
		mediaType, params, err := mime.ParseMediaType(contentType)
		if err != nil {
			mediaType = "text/plain"
		}

		// 附件不参与指纹计算，跳过
		if disposition := part.Header.Get("Content-Disposition"); disposition != "" {
			dispType, _, _ := mime.ParseMediaType(disposition)
			if dispType == "attachment" {
				continue
			}
		}

		// 处理嵌套的 multipart
		if strings.HasPrefix(mediaType, "multipart/") {
			boundary := params["boundary"]
			if boundary != "" {
				nestedReader := multipart.NewReader(part, boundary)
				if err := parseMultipart(nestedReader, record); err != nil {
					return err
				}
			}
			continue
		}

		body, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"), params["charset"])
		if err != nil {
			continue
		}

		if strings.HasPrefix(mediaType, "text/html") {
			if record.HTML == "" {
				record.HTML = body
			}
		} else if strings.HasPrefix(mediaType, "text/plain") {
			if record.Text == "" {
				record.Text = body
			}
		}
	}

	return nil
}

// decodeBody 根据编码方式解码邮件体。
func decodeBody(reader io.Reader, transferEncoding string, charset string) (string, error) {
	transferEncoding = strings.ToLower(strings.TrimSpace(transferEncoding))

	var decoded io.Reader = reader

	switch transferEncoding {
	case "base64":
		decoded = base64.NewDecoder(base64.StdEncoding, reader)
	case "quoted-printable":
		decoded = quotedprintable.NewReader(reader)
	case "7bit", "8bit", "binary", "":
		// 不需要解码
		decoded = reader
	default:
		// 未知编码，尝试直接读取
		decoded = reader
	}

	body, err := io.ReadAll(decoded)
	if err != nil {
		return "", err
	}

	// 字符集转换
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset != "" && charset != "utf-8" && charset != "us-ascii" {
		if enc := getCharsetEncoding(charset); enc != nil {
			decoder := enc.NewDecoder()
			converted, _, err := transform.Bytes(decoder, body)
			if err == nil {
				body = converted
			}
		}
	}

	return string(body), nil
}

// getCharsetEncoding 根据字符集名称返回编码器
func getCharsetEncoding(charset string) encoding.Encoding {
	switch charset {
	case "gb2312", "gbk", "gb18030":
		return simplifiedchinese.GBK
	case "big5":
		return traditionalchinese.Big5
	case "iso-2022-jp", "shift_jis", "euc-jp":
		return japanese.ShiftJIS
	case "euc-kr", "ks_c_5601-1987":
		return korean.EUCKR
	default:
		return nil
	}
}

func decodeHeader(value string) string {
	if value == "" {
		return value
	}
	decoder := new(mime.WordDecoder)
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
